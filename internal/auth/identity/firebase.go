package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/GoSim-25-26J-441/lms-access-backend/config"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

// InitializeFirebase initializes the Firebase Admin SDK app.
// Without a credentials file the SDK falls back to application default credentials.
func InitializeFirebase(ctx context.Context, cfg *config.FirebaseConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	var appCfg *firebase.Config
	if cfg.ProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

// Admin wraps the Firebase Admin Auth client for server-side use.
type Admin struct {
	client *auth.Client
}

func NewAdmin(ctx context.Context, app *firebase.App) (*Admin, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}
	return &Admin{client: client}, nil
}

func (a *Admin) CreateAccount(ctx context.Context, email, password string) (*domain.Principal, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	rec, err := a.client.CreateUser(ctx, params)
	if auth.IsEmailAlreadyExists(err) {
		return nil, domain.ErrEmailInUse
	}
	if err != nil {
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	return &domain.Principal{ID: rec.UID, Email: rec.Email, EmailVerified: rec.EmailVerified}, nil
}

func (a *Admin) VerifyIDToken(ctx context.Context, idToken string) (*domain.Principal, error) {
	tok, err := a.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return principalFromToken(tok), nil
}

// EachPrincipal walks every account known to the provider.
func (a *Admin) EachPrincipal(ctx context.Context, fn func(domain.Principal) error) error {
	it := a.client.Users(ctx, "")
	for {
		rec, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("iterate firebase users: %w", err)
		}
		if err := fn(domain.Principal{ID: rec.UID, Email: rec.Email, EmailVerified: rec.EmailVerified}); err != nil {
			return err
		}
	}
}

func principalFromToken(tok *auth.Token) *domain.Principal {
	p := &domain.Principal{ID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		p.Email = email
	}
	if verified, ok := tok.Claims["email_verified"].(bool); ok {
		p.EmailVerified = verified
	}
	return p
}
