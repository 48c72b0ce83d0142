package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"linguaquest/internal/repository"
)

// StreakLister finds users whose streak lapses unless they play today.
// *repository.StatsRepository satisfies it.
type StreakLister interface {
	ListStreaksAtRisk(since, until time.Time) ([]repository.AtRiskUser, error)
}

// ReminderService emails users whose daily streak is about to lapse, via
// Amazon SES. With no from-address configured the service runs disabled and
// skips every send.
type ReminderService struct {
	client    *sesv2.Client
	stats     StreakLister
	fromEmail string
	fromName  string
	enabled   bool
	debug     bool
	now       func() time.Time
}

// NewReminderService creates a new reminder service
func NewReminderService(stats StreakLister, awsRegion, fromEmail, fromName string, debug bool) (*ReminderService, error) {
	if fromEmail == "" {
		log.Println("Reminder service disabled: SES_FROM_EMAIL not configured")
		return &ReminderService{stats: stats, enabled: false, debug: debug, now: time.Now}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Reminder service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &ReminderService{
		client:    sesv2.NewFromConfig(cfg),
		stats:     stats,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		debug:     debug,
		now:       time.Now,
	}, nil
}

// IsEnabled returns whether the reminder service is enabled
func (s *ReminderService) IsEnabled() bool {
	return s.enabled
}

// SweepLapsingStreaks finds users whose last activity was yesterday and
// sends each a streak reminder. Safe to run repeatedly; users already active
// today fall outside the window.
func (s *ReminderService) SweepLapsingStreaks(ctx context.Context) error {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.Add(-24 * time.Hour)

	atRisk, err := s.stats.ListStreaksAtRisk(yesterday, today)
	if err != nil {
		return fmt.Errorf("failed to list at-risk streaks: %w", err)
	}

	if s.debug {
		log.Printf("[DEBUG] Streak sweep found %d at-risk users", len(atRisk))
	}

	for _, a := range atRisk {
		if err := s.sendStreakReminder(ctx, a.User.Email, a.User.Name, a.Streak); err != nil {
			log.Printf("Failed to send streak reminder to %s: %v", a.User.Email, err)
		}
	}
	return nil
}

func (s *ReminderService) sendStreakReminder(ctx context.Context, toEmail, toName string, streak int) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): streak reminder to %s", toEmail)
		return nil
	}

	subject := fmt.Sprintf("Don't lose your %d-day streak!", streak)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #58cc02; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Your streak needs you!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Your %d-day streak ends tonight unless you finish a lesson today.</p>
			<p>A single quick lesson keeps it alive.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from LinguaQuest. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, streak)

	textBody := fmt.Sprintf(`Hi %s,

Your %d-day streak ends tonight unless you finish a lesson today.
A single quick lesson keeps it alive.

---
This is an automated email from LinguaQuest. Please do not reply.
`, toName, streak)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *ReminderService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
