package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nao1215/socialnet/pkg/apperror"
	"github.com/nao1215/socialnet/pkg/credential"
	"github.com/nao1215/socialnet/pkg/password"
	"github.com/nao1215/socialnet/pkg/token"
)

// クライアント向けメッセージ。
const (
	msgLoginRequired      = "Email y contraseña son requeridos"
	msgInvalidCredentials = "Credenciales inválidas"
	msgAllFieldsRequired  = "Todos los campos son obligatorios"
	msgInvalidEmail       = "El formato del email no es válido"
	msgInvalidBirthDate   = "La fecha de nacimiento debe tener el formato YYYY-MM-DD"
	msgPasswordTooLong    = "La contraseña no puede superar los 72 caracteres"
	msgEmailTaken         = "El email ya está registrado"
	msgAliasTaken         = "El alias ya está en uso"
	msgRegistered         = "Usuario registrado correctamente"
)

// birthDateLayout は保存するbirthDateの形式。
const birthDateLayout = time.DateOnly

// User はレスポンスに含めるユーザー情報。パスワードハッシュは持たない。
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Alias     string `json:"alias"`
	Email     string `json:"email"`
}

// LoginInput はログイン要求。
type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// RegisterInput はユーザー登録要求。JSONとフォームの両方から受け付ける。
type RegisterInput struct {
	FirstName string `json:"firstName" form:"firstName" validate:"required"`
	LastName  string `json:"lastName" form:"lastName" validate:"required"`
	Alias     string `json:"alias" form:"alias" validate:"required"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required"`
	BirthDate string `json:"birthDate" form:"birthDate" validate:"required,birthdate"`
}

// Service はログインと登録のユースケースを実装する。
type Service struct {
	store    credential.Store
	hasher   *password.Hasher
	tokens   *token.Manager
	validate *validator.Validate
}

// NewService はServiceを生成する。
func NewService(store credential.Store, hasher *password.Hasher, tokens *token.Manager) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	// birthdate は YYYY-MM-DD または RFC3339 形式の日付を受け付ける。
	_ = v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		_, ok := parseBirthDate(fl.Field().String())
		return ok
	})

	return &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		validate: v,
	}
}

// Login はemailとパスワードを検証し、アクセストークンを発行する。
// 未登録のemailとパスワード不一致は同じエラーになる。
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperror.New(apperror.KindValidation, msgLoginRequired)
	}

	cred, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, credential.ErrNotFound) {
		// 登録済みの場合と同じコストをかけてから失敗させる。
		if err := s.hasher.CompareDummy(ctx, in.Password); err != nil {
			return nil, fmt.Errorf("ダミー照合に失敗: %w", err)
		}
		return nil, apperror.New(apperror.KindUnauthenticated, msgInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("ログイン時のユーザー取得に失敗: %w", err)
	}

	ok, err := s.hasher.Compare(ctx, cred.PasswordHash, in.Password)
	if err != nil {
		return nil, fmt.Errorf("ログイン時のパスワード照合に失敗: %w", err)
	}
	if !ok {
		return nil, apperror.New(apperror.KindUnauthenticated, msgInvalidCredentials)
	}

	signed, expiresAt, err := s.tokens.Issue(token.Identity{
		ID:        cred.ID,
		Email:     cred.Email,
		FirstName: cred.FirstName,
		LastName:  cred.LastName,
		Alias:     cred.Alias,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: signed, ExpiresAt: expiresAt, User: toUser(cred)}, nil
}

// Register は新しいユーザーを登録する。
// email の重複を先に確認し、次に alias を確認する。同時登録による重複は一意制約で検出する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in = normalizeRegisterInput(in)
	if err := s.validateRegister(in); err != nil {
		return nil, err
	}
	birthDate, _ := parseBirthDate(in.BirthDate)

	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperror.New(apperror.KindConflict, msgEmailTaken)
	} else if !errors.Is(err, credential.ErrNotFound) {
		return nil, fmt.Errorf("登録時のemail確認に失敗: %w", err)
	}

	if _, err := s.store.FindByAlias(ctx, in.Alias); err == nil {
		return nil, apperror.New(apperror.KindConflict, msgAliasTaken)
	} else if !errors.Is(err, credential.ErrNotFound) {
		return nil, fmt.Errorf("登録時のalias確認に失敗: %w", err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if errors.Is(err, password.ErrTooLong) {
		return nil, apperror.New(apperror.KindValidation, msgPasswordTooLong)
	}
	if err != nil {
		return nil, fmt.Errorf("登録時のハッシュ化に失敗: %w", err)
	}

	cred := &credential.Credential{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Alias:        in.Alias,
		Email:        in.Email,
		PasswordHash: hash,
		BirthDate:    birthDate.Format(birthDateLayout),
	}
	err = s.store.Create(ctx, cred)
	switch {
	case errors.Is(err, credential.ErrDuplicateEmail):
		return nil, apperror.Wrap(apperror.KindConflict, msgEmailTaken, err)
	case errors.Is(err, credential.ErrDuplicateAlias):
		return nil, apperror.Wrap(apperror.KindConflict, msgAliasTaken, err)
	case err != nil:
		return nil, fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}

	u := toUser(cred)
	return &u, nil
}

// validateRegister は登録要求を検証する。
// 必須項目の欠落は形式エラーより優先して報告する。
func (s *Service) validateRegister(in RegisterInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("入力検証に失敗: %w", err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return apperror.New(apperror.KindValidation, msgAllFieldsRequired)
		}
	}
	switch verrs[0].Field() {
	case "Email":
		return apperror.New(apperror.KindValidation, msgInvalidEmail)
	case "BirthDate":
		return apperror.New(apperror.KindValidation, msgInvalidBirthDate)
	default:
		return apperror.New(apperror.KindValidation, msgAllFieldsRequired)
	}
}

// normalizeRegisterInput は前後の空白を取り除き、emailを小文字にそろえる。
// パスワードは入力どおりに扱う。
func normalizeRegisterInput(in RegisterInput) RegisterInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Alias = strings.TrimSpace(in.Alias)
	in.Email = normalizeEmail(in.Email)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	return in
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// parseBirthDate は YYYY-MM-DD または RFC3339 形式の日付を解析する。
func parseBirthDate(s string) (time.Time, bool) {
	if t, err := time.Parse(birthDateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func toUser(c *credential.Credential) User {
	return User{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Alias:     c.Alias,
		Email:     c.Email,
	}
}
