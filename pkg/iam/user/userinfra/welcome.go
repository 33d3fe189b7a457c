package userinfra

import (
	"context"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/jobx"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

const JobTypeWelcomeEmail = "notification.welcome_email"

// Enqueuer is the part of jobx.Client used to queue work.
type Enqueuer interface {
	EnqueuePayload(ctx context.Context, jobType string, payload any) (string, error)
}

// JobWelcomeNotifier queues welcome emails on the job queue.
type JobWelcomeNotifier struct {
	jobs Enqueuer
}

func NewJobWelcomeNotifier(jobs Enqueuer) *JobWelcomeNotifier {
	return &JobWelcomeNotifier{jobs: jobs}
}

func (n *JobWelcomeNotifier) QueueWelcome(ctx context.Context, email user.WelcomeEmail) error {
	jobID, err := n.jobs.EnqueuePayload(ctx, JobTypeWelcomeEmail, email)
	if err != nil {
		return errx.Wrap(err, "failed to queue welcome email", errx.TypeInternal).
			WithDetail("user_id", email.UserID)
	}
	logx.WithFields(logx.Fields{
		"job_id":  jobID,
		"user_id": email.UserID,
	}).Debug("Welcome email queued")
	return nil
}

// WelcomeEmailHandler delivers queued welcome emails through the user's
// client profile when it has one.
type WelcomeEmailHandler struct {
	dispatcher *notifx.Dispatcher
	clientRepo client.Repository
}

func NewWelcomeEmailHandler(dispatcher *notifx.Dispatcher, clientRepo client.Repository) *WelcomeEmailHandler {
	return &WelcomeEmailHandler{dispatcher: dispatcher, clientRepo: clientRepo}
}

// Register binds the handler to its job type.
func (h *WelcomeEmailHandler) Register(jobs *jobx.Client) {
	jobs.Register(JobTypeWelcomeEmail, h.Handle)
}

func (h *WelcomeEmailHandler) Handle(ctx context.Context, job *jobx.JobInfo) error {
	var payload user.WelcomeEmail
	if err := job.Decode(&payload); err != nil {
		return err
	}

	body, err := h.dispatcher.Client().Render(notifx.TemplateWelcome, notifx.WelcomeTemplateData{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	if err != nil {
		return err
	}

	var profile *notifx.DeliveryProfile
	if payload.ClientID != nil {
		c, err := h.clientRepo.FindByID(ctx, *payload.ClientID)
		switch {
		case err == nil:
			profile = c.DeliveryProfile()
		case errx.HasCode(err, client.CodeClientNotFound):
			logx.WithField("client_id", *payload.ClientID).Warn("Client removed before welcome email was sent")
		default:
			return err
		}
	}

	msg := notifx.EmailMessage{
		To:       []string{payload.Email},
		Subject:  "Welcome to Auth Builder - Your Account Details",
		HTMLBody: body,
	}
	if !h.dispatcher.Deliver(ctx, msg, profile) {
		return notifx.ErrDeliveryFailed().WithDetail("user_id", payload.UserID)
	}

	logx.WithField("user_id", payload.UserID).Info("Welcome email sent")
	return nil
}
