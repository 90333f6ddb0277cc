package user

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campusdesk/core"
)

type serviceMock struct {
	*service
}

// NewServiceMock returns a Service that sends its emails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) Service {
	return &serviceMock{service: newService(repo, mailSvc, conf, validate)}
}

func (svc *serviceMock) Create(ctx context.Context, nu NewUser) (User, error) {
	usr, pwd, err := svc.create(ctx, nu)
	if err != nil {
		return User{}, err
	}
	// run synchronously
	svc.sendWelcomeMail(usr, pwd)
	return usr, nil
}

func (svc *serviceMock) CreateMany(ctx context.Context, nus []NewUser) BulkResult {
	res := BulkResult{Created: []User{}, Failed: []BulkFailure{}}
	for i, nu := range nus {
		usr, err := svc.Create(ctx, nu)
		if err != nil {
			res.Failed = append(res.Failed, BulkFailure{Index: i, Email: nu.Email, Error: bulkErrorMessage(err)})
			continue
		}
		res.Created = append(res.Created, usr)
	}
	return res
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

// MakeResetToken exposes the reset token generator to tests of other packages.
func MakeResetToken(conf *core.Config, usr User) (string, error) {
	return tokenGenerator{secretKey: conf.SecretKey, timeout: conf.PasswordResetTimeoutDelta}.makeToken(usr)
}
