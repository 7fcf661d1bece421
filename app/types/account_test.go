package types

import (
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func TestRegisterRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"valid", RegisterRequest{Username: "bob", Email: "bob@x.com", Password: "Secret1!"}, false},
		{"missing username", RegisterRequest{Username: "  ", Email: "bob@x.com", Password: "Secret1!"}, true},
		{"bad email", RegisterRequest{Username: "bob", Email: "bob.x.com", Password: "Secret1!"}, true},
		{"trailing at", RegisterRequest{Username: "bob", Email: "bob@", Password: "Secret1!"}, true},
		{"missing password", RegisterRequest{Username: "bob", Email: "bob@x.com"}, true},
	}

	for _, tc := range cases {
		err := tc.req.Validate()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: expected error=%v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestLoginRequestValidate(t *testing.T) {
	if err := (&LoginRequest{Email: "bob@x.com", Password: "x"}).Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if err := (&LoginRequest{Email: "bob@x.com"}).Validate(); err == nil {
		t.Fatalf("expected error for missing password")
	}
	if err := (&LoginRequest{Email: "bob@x.com", Password: "x", RefreshTokenDuration: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative duration")
	}
}

func TestGettersAreNilSafe(t *testing.T) {
	var reg *RegisterRequest
	var login *LoginRequest
	var resp *LoginResponse
	if reg.GetEmail() != "" || login.GetRefreshTokenDuration() != 0 || resp.GetAuthToken() != "" {
		t.Fatalf("expected zero values from nil receivers")
	}
}

func TestDecodeStruct(t *testing.T) {
	src, err := structpb.NewStruct(map[string]any{
		"email":                  "bob@x.com",
		"password":               "Secret1!",
		"refresh_token_duration": 30,
	})
	if err != nil {
		t.Fatalf("new struct failed: %v", err)
	}

	var req LoginRequest
	if err := DecodeStruct(src, &req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if req.GetEmail() != "bob@x.com" || req.GetRefreshTokenDuration() != 30 {
		t.Fatalf("unexpected request: %+v", req)
	}

	var empty VerifyRequest
	if err := DecodeStruct(nil, &empty); err != nil {
		t.Fatalf("decode nil failed: %v", err)
	}
}

func TestEncodeStruct(t *testing.T) {
	out, err := EncodeStruct(&VerifyResponse{AccountId: "acc-1", AlreadyVerified: true, Message: "ok"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	fields := out.GetFields()
	if fields["account_id"].GetStringValue() != "acc-1" || !fields["already_verified"].GetBoolValue() {
		t.Fatalf("unexpected struct: %v", out)
	}
}
