package usecase

import (
	"context"
	"time"

	"consultancy-backend/internal/domain"
	"consultancy-backend/pkg/apperror"
	"consultancy-backend/pkg/email"
	"consultancy-backend/pkg/logger"
	"consultancy-backend/pkg/security"
	"consultancy-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// ContactFormatter renders a submission into a notification.
type ContactFormatter interface {
	FormatContact(data email.ContactEmailData, now time.Time) (email.Notification, error)
}

type contactUsecase struct {
	validate  *validator.Validate
	verifier  domain.RiskVerifier
	formatter ContactFormatter
	notifier  domain.Notifier
	policy    domain.DeliveryPolicy
	audit     *security.SecurityLogger
	now       func() time.Time
}

// ContactDeps groups the collaborators of the contact usecase.
type ContactDeps struct {
	Validate  *validator.Validate
	Verifier  domain.RiskVerifier
	Formatter ContactFormatter
	Notifier  domain.Notifier
	Policy    domain.DeliveryPolicy
	Audit     *security.SecurityLogger
	Now       func() time.Time
}

// NewContactUsecase creates a new contact usecase
func NewContactUsecase(deps ContactDeps) domain.ContactUsecase {
	uc := &contactUsecase{
		validate:  deps.Validate,
		verifier:  deps.Verifier,
		formatter: deps.Formatter,
		notifier:  deps.Notifier,
		policy:    deps.Policy,
		audit:     deps.Audit,
		now:       deps.Now,
	}
	if uc.validate == nil {
		uc.validate = validation.New()
	}
	if uc.policy == "" {
		uc.policy = domain.DeliveryBestEffort
	}
	if uc.audit == nil {
		uc.audit = security.DefaultLogger()
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc
}

// Submit validates the request, checks the risk token and relays the message.
// Validation runs before any network call; the verifier always runs before delivery.
func (uc *contactUsecase) Submit(ctx context.Context, req *domain.SubmissionRequest) (*domain.SubmissionResult, error) {
	if req == nil {
		return nil, apperror.Validation("Invalid request", nil)
	}
	req.Normalize()

	if err := uc.validate.Struct(req); err != nil {
		violations := validation.Violations(err)
		uc.audit.Log(ctx, security.SecurityEvent{
			Event:     security.EventValidationFailed,
			RequestID: security.RequestIDFromContext(ctx),
			Details:   map[string]interface{}{"violations": violationKinds(violations)},
		})
		return nil, apperror.Validation(validation.Summary(violations), violations)
	}

	if _, ok := uc.verifier.Verify(ctx, req.RecaptchaToken, domain.ContactAction); !ok {
		return nil, apperror.SecurityCheckFailed(domain.MessageSecurityFailed)
	}

	data := email.ContactEmailData{
		SenderName:  req.Name,
		SenderEmail: req.Email,
		Phone:       req.Phone,
		Subject:     req.Subject,
		Message:     req.Message,
	}

	err := uc.deliver(ctx, data)
	if err == nil {
		return &domain.SubmissionResult{Success: true, Message: domain.MessageSent}, nil
	}

	uc.audit.LogDeliveryFailed(ctx, req.Email, err)
	if uc.policy == domain.DeliveryStrict {
		return nil, apperror.DeliveryUnavailable(domain.MessageDeliveryFailed, err)
	}

	logger.Log.Warn("Contact email not sent, reporting success to submitter", "error", err)
	return &domain.SubmissionResult{Success: true, Message: domain.MessageDeliveryPending}, nil
}

func (uc *contactUsecase) deliver(ctx context.Context, data email.ContactEmailData) error {
	n, err := uc.formatter.FormatContact(data, uc.now())
	if err != nil {
		return err
	}
	return uc.notifier.Send(ctx, n, data.SenderEmail)
}

func violationKinds(vs []validation.Violation) map[string]string {
	out := make(map[string]string, len(vs))
	for _, v := range vs {
		out[v.Field] = string(v.Kind)
	}
	return out
}
