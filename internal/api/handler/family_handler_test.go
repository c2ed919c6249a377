package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/familycircle/circle-api/internal/core/domain"
)

func newFamilyFixture() (*FamilyHandler, *stubFamilyService, *stubMediaService, *stubSessionService) {
	users := &stubUserService{users: map[string]*domain.User{
		"uid-ana": {ID: "uid-ana", Name: "Ana", FamilyID: strPtr("fam-1"), IsAdmin: true},
		"uid-bo":  {ID: "uid-bo", Name: "Bo", FamilyID: strPtr("fam-1")},
		"uid-cy":  {ID: "uid-cy", Name: "Cy"},
	}}
	families := &stubFamilyService{families: map[string]*domain.Family{
		"fam-1": {ID: "fam-1", Name: "Smiths", InviteCode: "ABCD-EFGH-JKLM", CreatedBy: "uid-ana"},
	}}
	families.joinFn = func(_ context.Context, userID, code string) (*domain.User, *domain.Family, error) {
		f, _ := families.GetFamilyByInviteCode(context.Background(), code)
		if f == nil {
			return nil, nil, domain.ErrInvalidInviteCode
		}
		u := *users.users[userID]
		u.FamilyID = &f.ID
		return &u, f, nil
	}
	media := &stubMediaService{maxBytes: 1024, photos: map[string][]string{"fam-1": {"http://media/a.jpg"}}}
	sessions := &stubSessionService{}
	return NewFamilyHandler(families, users, media, sessions), families, media, sessions
}

// familyContext builds a context for /v1/families/:id routes.
func familyContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, identityID, familyID string) echo.Context {
	c := authed(e.NewContext(req, rec), identityID)
	c.SetParamNames("id")
	c.SetParamValues(familyID)
	return c
}

func TestFamilyHandler_Join(t *testing.T) {
	e := newTestEcho()
	h, _, _, sessions := newFamilyFixture()

	rec := httptest.NewRecorder()
	c := authed(e.NewContext(jsonRequest(http.MethodPost, "/v1/families/join", `{"code":"ABCD-EFGH-JKLM"}`), rec), "uid-cy")
	if err := h.Join(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp joinFamilyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Family == nil || resp.Family.ID != "fam-1" || !resp.User.InFamily("fam-1") {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(sessions.changed) != 1 {
		t.Fatalf("expected profile change to be announced")
	}
}

func TestFamilyHandler_Join_Errors(t *testing.T) {
	e := newTestEcho()
	h, _, _, sessions := newFamilyFixture()

	c := authed(e.NewContext(jsonRequest(http.MethodPost, "/v1/families/join", `{}`), httptest.NewRecorder()), "uid-cy")
	expectHTTPStatus(t, h.Join(c), http.StatusUnprocessableEntity)

	c = authed(e.NewContext(jsonRequest(http.MethodPost, "/v1/families/join", `{"code":"ZZZZ-ZZZZ-ZZZZ"}`), httptest.NewRecorder()), "uid-cy")
	if err := h.Join(c); !errors.Is(err, domain.ErrInvalidInviteCode) {
		t.Fatalf("expected ErrInvalidInviteCode, got %v", err)
	}
	if len(sessions.changed) != 0 {
		t.Fatalf("failed join must not announce a profile change")
	}
}

func TestFamilyHandler_InvitePreview(t *testing.T) {
	e := newTestEcho()
	h, _, _, _ := newFamilyFixture()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("code")
	c.SetParamValues("ABCD-EFGH-JKLM")
	if err := h.InvitePreview(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["name"] != "Smiths" {
		t.Fatalf("unexpected preview: %+v", resp)
	}
	if _, leaked := resp["invite_code"]; leaked {
		t.Fatalf("preview must not echo the invite code")
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("code")
	c.SetParamValues("NOPE-NOPE-NOPE")
	if err := h.InvitePreview(c); !errors.Is(err, domain.ErrInvalidInviteCode) {
		t.Fatalf("expected ErrInvalidInviteCode, got %v", err)
	}
}

func TestFamilyHandler_Get_MembersOnly(t *testing.T) {
	e := newTestEcho()
	h, _, _, _ := newFamilyFixture()

	rec := httptest.NewRecorder()
	if err := h.Get(familyContext(e, httptest.NewRequest(http.MethodGet, "/", nil), rec, "uid-bo", "fam-1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var family domain.Family
	if err := json.Unmarshal(rec.Body.Bytes(), &family); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if family.ID != "fam-1" {
		t.Fatalf("unexpected family: %+v", family)
	}

	err := h.Get(familyContext(e, httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder(), "uid-cy", "fam-1"))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestFamilyHandler_Update(t *testing.T) {
	e := newTestEcho()
	h, families, _, _ := newFamilyFixture()

	rec := httptest.NewRecorder()
	req := jsonRequest(http.MethodPatch, "/", `{"name":"The Smiths"}`)
	if err := h.Update(familyContext(e, req, rec, "uid-ana", "fam-1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if families.updated == nil || *families.updated.Name != "The Smiths" {
		t.Fatalf("unexpected update: %+v", families.updated)
	}

	req = jsonRequest(http.MethodPatch, "/", `{}`)
	expectHTTPStatus(t, h.Update(familyContext(e, req, httptest.NewRecorder(), "uid-ana", "fam-1")), http.StatusUnprocessableEntity)
}

func TestFamilyHandler_Update_NonCreatorAdmin(t *testing.T) {
	e := newTestEcho()
	h, families, _, _ := newFamilyFixture()
	// Registered without a family, so admin, then joined fam-1 by code.
	h.users.(*stubUserService).users["uid-dee"] = &domain.User{ID: "uid-dee", Name: "Dee", FamilyID: strPtr("fam-1"), IsAdmin: true}

	req := jsonRequest(http.MethodPatch, "/", `{"name":"Taken Over"}`)
	if err := h.Update(familyContext(e, req, httptest.NewRecorder(), "uid-dee", "fam-1")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if families.updated != nil {
		t.Fatalf("family must not be updated, got %+v", families.updated)
	}

	req = jsonRequest(http.MethodPatch, "/", `{"name":"Taken Over"}`)
	if err := h.Update(familyContext(e, req, httptest.NewRecorder(), "uid-bo", "fam-1")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for member, got %v", err)
	}
}

func TestFamilyHandler_Members(t *testing.T) {
	e := newTestEcho()
	h, _, _, _ := newFamilyFixture()

	rec := httptest.NewRecorder()
	if err := h.Members(familyContext(e, httptest.NewRequest(http.MethodGet, "/", nil), rec, "uid-ana", "fam-1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp membersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(resp.Members))
	}
}

func TestFamilyHandler_Photos(t *testing.T) {
	e := newTestEcho()
	h, _, media, _ := newFamilyFixture()

	req := multipartRequest(t, http.MethodPost, "/", "beach.jpg", []byte("jpeg"))
	rec := httptest.NewRecorder()
	if err := h.UploadPhoto(familyContext(e, req, rec, "uid-bo", "fam-1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(media.uploads) != 1 || media.uploads[0].Name != "beach.jpg" {
		t.Fatalf("unexpected uploads: %+v", media.uploads)
	}

	rec = httptest.NewRecorder()
	if err := h.ListPhotos(familyContext(e, httptest.NewRequest(http.MethodGet, "/", nil), rec, "uid-bo", "fam-1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp photosResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Photos) != 1 || resp.Photos[0] != "http://media/a.jpg" {
		t.Fatalf("unexpected photos: %+v", resp.Photos)
	}

	req = multipartRequest(t, http.MethodPost, "/", "beach.jpg", []byte("jpeg"))
	if err := h.UploadPhoto(familyContext(e, req, httptest.NewRecorder(), "uid-cy", "fam-1")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a non-member, got %v", err)
	}
}
