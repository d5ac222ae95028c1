package auth

import (
	"context"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/option"
)

var ErrEmailExists = errors.New("email already registered in auth provider")

type NewUser struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
}

// Account is the profile the auth provider holds for a uid.
type Account struct {
	Email         string
	EmailVerified bool
	DisplayName   string
	Phone         string
}

// Firebase wraps the Admin SDK auth client.
type Firebase struct {
	client *fbauth.Client
}

func NewFirebase(ctx context.Context, projectID, credentialsFile string) (*Firebase, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error getting firebase auth client")
	}
	return &Firebase{client: client}, nil
}

// VerifyIDToken returns the uid of a valid ID token.
func (f *Firebase) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}

func (f *Firebase) EmailInUse(ctx context.Context, email string) (bool, error) {
	_, err := f.client.GetUserByEmail(ctx, email)
	if fbauth.IsUserNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *Firebase) CreateUser(ctx context.Context, u NewUser) (string, error) {
	params := (&fbauth.UserToCreate{}).
		Email(u.Email).
		Password(u.Password).
		DisplayName(u.DisplayName)
	if strings.HasPrefix(u.Phone, "+") {
		params = params.PhoneNumber(u.Phone)
	}
	rec, err := f.client.CreateUser(ctx, params)
	if fbauth.IsEmailAlreadyExists(err) {
		return "", ErrEmailExists
	}
	if err != nil {
		return "", errors.Wrap(err, "create firebase user")
	}
	return rec.UID, nil
}

func (f *Firebase) GetAccount(ctx context.Context, uid string) (Account, error) {
	rec, err := f.client.GetUser(ctx, uid)
	if err != nil {
		return Account{}, errors.Wrapf(err, "get firebase user %s", uid)
	}
	return Account{
		Email:         rec.Email,
		EmailVerified: rec.EmailVerified,
		DisplayName:   rec.DisplayName,
		Phone:         rec.PhoneNumber,
	}, nil
}

func (f *Firebase) DeleteUser(ctx context.Context, uid string) error {
	return f.client.DeleteUser(ctx, uid)
}
