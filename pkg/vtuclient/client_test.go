package vtuclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompleteAirtimeConversion_Code101IsConfirmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ref"); got != "000111222333" {
			t.Errorf("expected ledger reference in query, got %q", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Errorf("expected api key in query, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":101,"description":{"status":"Successful"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.CompleteAirtimeConversion(context.Background(), "mtn", "08030000000", "08040000000", "000111222333", 1000)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !result.Confirmed {
		t.Fatal("expected code 101 to confirm the conversion")
	}
}

func TestCompleteAirtimeConversion_NonSuccessCodeIsUnconfirmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":104,"description":"pending confirmation"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.CompleteAirtimeConversion(context.Background(), "mtn", "08030000000", "08040000000", "000111222333", 1000)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Confirmed {
		t.Fatal("expected non-101 code to leave the conversion unconfirmed")
	}
}

func TestPayBill_HTTPErrorMapsToAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":400,"message":"invalid provider"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.PayBill(context.Background(), "electricity", "bogus", "000111222333", 1000)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != 400 {
		t.Fatalf("expected code 400, got %d", apiErr.Code)
	}
}

func TestVerifyAirtimeMerchant_DecodesMerchantLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":101,"description":{"message":"Send airtime to the line below","Phone_Number":"08121111111"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	info, err := client.VerifyAirtimeMerchant(context.Background(), "glo")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if info.PhoneNumber != "08121111111" {
		t.Fatalf("expected merchant line 08121111111, got %q", info.PhoneNumber)
	}
}
