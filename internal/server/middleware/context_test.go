package middleware

import (
	"context"
	"testing"
)

func TestWithIdentity_SetsValues(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "org-1")

	userID, ok := GetUserID(ctx)
	if !ok || userID != "user-1" {
		t.Errorf("GetUserID = %q, %v; want user-1, true", userID, ok)
	}
	orgID, ok := GetOrgID(ctx)
	if !ok || orgID != "org-1" {
		t.Errorf("GetOrgID = %q, %v; want org-1, true", orgID, ok)
	}
}

func TestGetters_ReturnFalseWhenNotSet(t *testing.T) {
	ctx := context.Background()
	if v, ok := GetUserID(ctx); ok || v != "" {
		t.Errorf("GetUserID = %q, %v; want empty, false", v, ok)
	}
	if v, ok := GetOrgID(ctx); ok || v != "" {
		t.Errorf("GetOrgID = %q, %v; want empty, false", v, ok)
	}
}

func TestGetOrgID_EmptyIsUnset(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "")
	if _, ok := GetOrgID(ctx); ok {
		t.Error("GetOrgID should report false for an empty org")
	}
}

func TestWithIdentity_Chaining(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "org-1")
	ctx = WithIdentity(ctx, "user-2", "org-2")

	if v, _ := GetUserID(ctx); v != "user-2" {
		t.Errorf("user_id = %q, want user-2", v)
	}
	if v, _ := GetOrgID(ctx); v != "org-2" {
		t.Errorf("org_id = %q, want org-2", v)
	}
}
