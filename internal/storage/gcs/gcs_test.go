package gcs

import (
	"testing"

	appconfig "github.com/annotation-study/registration/internal/config"
)

// ---------------------------------------------------------------------------
// New() / clientOptions: validation only, no GCS connection
// ---------------------------------------------------------------------------

func TestNew_MissingBucket(t *testing.T) {
	_, err := New(&appconfig.GCSStorageConfig{Bucket: ""})
	if err == nil {
		t.Error("New() = nil error, want error for missing bucket")
	}
}

func TestNew_ServiceAccountNoCredentials(t *testing.T) {
	cfg := &appconfig.GCSStorageConfig{
		Bucket:     "my-bucket",
		AuthMethod: "service_account",
	}
	if _, err := New(cfg); err == nil {
		t.Error("New() = nil error, want error for service_account without credentials")
	}
}

func TestNew_UnsupportedAuthMethod(t *testing.T) {
	cfg := &appconfig.GCSStorageConfig{
		Bucket:     "my-bucket",
		AuthMethod: "not-a-valid-method",
	}
	if _, err := New(cfg); err == nil {
		t.Error("New() = nil error, want error for unsupported auth_method")
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name    string
		cfg     appconfig.GCSStorageConfig
		want    int
		wantErr bool
	}{
		{"default", appconfig.GCSStorageConfig{}, 0, false},
		{"workload identity", appconfig.GCSStorageConfig{AuthMethod: "workload_identity"}, 0, false},
		{"inferred service account", appconfig.GCSStorageConfig{CredentialsJSON: `{"type":"service_account"}`}, 1, false},
		{"file", appconfig.GCSStorageConfig{AuthMethod: "service_account", CredentialsFile: "/etc/key.json"}, 1, false},
		{"endpoint", appconfig.GCSStorageConfig{Endpoint: "http://localhost:4443/storage/v1/"}, 1, false},
		{"missing credentials", appconfig.GCSStorageConfig{AuthMethod: "service_account"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := clientOptions(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("clientOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(opts) != tt.want {
				t.Errorf("clientOptions() returned %d options, want %d", len(opts), tt.want)
			}
		})
	}
}
