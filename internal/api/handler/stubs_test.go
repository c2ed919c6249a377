package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/familycircle/circle-api/internal/api/middleware"
	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
)

type stubSessionService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	logoutFn   func(ctx context.Context, in ports.LogoutInput) error
	changed    []*domain.User
}

func (s *stubSessionService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubSessionService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubSessionService) Logout(ctx context.Context, in ports.LogoutInput) error {
	return s.logoutFn(ctx, in)
}

func (s *stubSessionService) CurrentSession(context.Context, string) (*domain.User, error) {
	return nil, nil
}

func (s *stubSessionService) ProfileChanged(_ context.Context, user *domain.User) {
	s.changed = append(s.changed, user)
}

type stubUserService struct {
	users    map[string]*domain.User
	updateFn func(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
}

func (s *stubUserService) CreateUser(context.Context, string, domain.NewUser) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUserService) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	return s.users[id], nil
}

func (s *stubUserService) GetUserByEmail(context.Context, string) (*domain.User, error) {
	return nil, nil
}

func (s *stubUserService) UpdateUser(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	return s.updateFn(ctx, id, update)
}

func (s *stubUserService) GetUsersByFamilyID(_ context.Context, familyID string) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range s.users {
		if u.InFamily(familyID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubUserService) DeleteUser(context.Context, string) error { return nil }

type stubFamilyService struct {
	families map[string]*domain.Family
	joinFn   func(ctx context.Context, userID, code string) (*domain.User, *domain.Family, error)
	updated  *domain.FamilyUpdate
}

func (s *stubFamilyService) CreateFamily(context.Context, string, string) (*domain.Family, error) {
	return nil, errors.New("not implemented")
}

func (s *stubFamilyService) GetFamilyByID(_ context.Context, id string) (*domain.Family, error) {
	return s.families[id], nil
}

func (s *stubFamilyService) GetFamilyByInviteCode(_ context.Context, code string) (*domain.Family, error) {
	for _, f := range s.families {
		if f.InviteCode == code {
			return f, nil
		}
	}
	return nil, nil
}

func (s *stubFamilyService) UpdateFamily(_ context.Context, id string, update domain.FamilyUpdate) (*domain.Family, error) {
	s.updated = &update
	f, ok := s.families[id]
	if !ok {
		return nil, domain.ErrFamilyNotFound
	}
	out := *f
	if update.Name != nil {
		out.Name = *update.Name
	}
	return &out, nil
}

func (s *stubFamilyService) DeleteFamily(context.Context, string) error { return nil }

func (s *stubFamilyService) JoinFamily(ctx context.Context, userID, code string) (*domain.User, *domain.Family, error) {
	return s.joinFn(ctx, userID, code)
}

type stubMediaService struct {
	maxBytes int64
	uploads  []domain.Blob
	oldURL   string
	photos   map[string][]string
	files    map[string]string
	checkErr error
}

func (s *stubMediaService) UploadFile(_ context.Context, blob domain.Blob, pathPrefix, fileName string) (string, error) {
	s.uploads = append(s.uploads, blob)
	return "http://media/" + pathPrefix + "/" + fileName, nil
}

func (s *stubMediaService) UploadProfileImage(ctx context.Context, userID string, blob domain.Blob) (string, error) {
	return s.UploadFile(ctx, blob, "profile_images", userID)
}

func (s *stubMediaService) UploadFamilyPhoto(ctx context.Context, familyID string, blob domain.Blob) (string, error) {
	return s.UploadFile(ctx, blob, "family_photos/"+familyID, blob.Name)
}

func (s *stubMediaService) UpdateProfileImage(ctx context.Context, userID string, blob domain.Blob, oldURL string) (string, error) {
	s.oldURL = oldURL
	return s.UploadProfileImage(ctx, userID, blob)
}

func (s *stubMediaService) CheckProfileImage(string, string) error { return s.checkErr }

func (s *stubMediaService) DeleteFile(context.Context, string) error { return nil }

func (s *stubMediaService) ListFiles(context.Context, string) ([]string, error) { return nil, nil }

func (s *stubMediaService) ListFamilyPhotos(_ context.Context, familyID string) ([]string, error) {
	return s.photos[familyID], nil
}

func (s *stubMediaService) Open(_ context.Context, path string) (io.ReadCloser, domain.StoredObject, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, domain.StoredObject{}, domain.ErrFileNotFound
	}
	return io.NopCloser(strings.NewReader(data)), domain.StoredObject{Path: path, ContentType: "image/png", Size: int64(len(data))}, nil
}

func (s *stubMediaService) MaxBytes() int64 { return s.maxBytes }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func multipartRequest(t *testing.T, method, target, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(uploadField, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

// authed sets the claims the Auth middleware would have injected.
func authed(c echo.Context, identityID string) echo.Context {
	c.Set(middleware.KeyIdentityID, identityID)
	return c
}

func expectHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError with %d, got %v", want, err)
	}
	if he.Code != want {
		t.Fatalf("expected status %d, got %d (%v)", want, he.Code, he.Message)
	}
}

func strPtr(s string) *string { return &s }
