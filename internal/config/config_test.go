package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_LockoutDefaults(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Lockout.MaxLoginAttempts != 5 {
		t.Errorf("MaxLoginAttempts: got %d, want 5", cfg.Lockout.MaxLoginAttempts)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"LoginAttemptsWindow", cfg.Lockout.LoginAttemptsWindow, 15 * time.Minute},
		{"LockoutDuration", cfg.Lockout.LockoutDuration, 15 * time.Minute},
		{"Retention", cfg.Lockout.Retention, 24 * time.Hour},
		{"LedgerTimeout", cfg.Lockout.LedgerTimeout, 5 * time.Second},
		{"RateLimit.Window", cfg.RateLimit.Window, 1 * time.Minute},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.RateLimit.Capacity != 1000 {
		t.Errorf("RateLimit.Capacity: got %d, want 1000", cfg.RateLimit.Capacity)
	}
}

func TestLoad_LockoutCustomValues(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	os.Setenv("LOGIN_ATTEMPTS_WINDOW", "10m")
	os.Setenv("LOCKOUT_DURATION", "30m")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Lockout.MaxLoginAttempts != 3 {
		t.Errorf("MaxLoginAttempts: got %d, want 3", cfg.Lockout.MaxLoginAttempts)
	}
	if cfg.Lockout.LoginAttemptsWindow != 10*time.Minute {
		t.Errorf("LoginAttemptsWindow: got %v, want 10m", cfg.Lockout.LoginAttemptsWindow)
	}
	if cfg.Lockout.LockoutDuration != 30*time.Minute {
		t.Errorf("LockoutDuration: got %v, want 30m", cfg.Lockout.LockoutDuration)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("LOCKOUT_DURATION", "not-a-duration")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Lockout.LockoutDuration != 15*time.Minute {
		t.Errorf("LockoutDuration with invalid value: got %v, want %v", cfg.Lockout.LockoutDuration, 15*time.Minute)
	}
}

func TestLoad_RetentionShorterThanWindow(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("LOGIN_ATTEMPT_RETENTION", "5m")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for retention shorter than window")
	}
}

func TestLoad_ZeroMaxAttemptsRejected(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("MAX_LOGIN_ATTEMPTS", "0")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for MAX_LOGIN_ATTEMPTS=0")
	}
}

func TestLoad_PostgresRequiresPassword(t *testing.T) {
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error when DB_PASSWORD is missing")
	}
}

func TestLoad_SQLiteDoesNotRequirePassword(t *testing.T) {
	os.Setenv("DB_DRIVER", "sqlite")
	os.Setenv("SQLITE_PATH", ":memory:")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Driver: got %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	os.Setenv("DB_DRIVER", "mongo")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for unknown driver")
	}
}

func TestLoad_ServiceRoleSecretRequiredInProduction(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error when SERVICE_ROLE_SECRET is missing in production")
	}

	os.Setenv("SERVICE_ROLE_SECRET", "too-short-for-production")
	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for short SERVICE_ROLE_SECRET in production")
	}

	os.Setenv("SERVICE_ROLE_SECRET", "a-production-secret-that-is-long-enough")
	if _, err := Load(); err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1/32,")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if len(cfg.Server.TrustedProxies) != 2 {
		t.Fatalf("TrustedProxies: got %v, want 2 entries", cfg.Server.TrustedProxies)
	}
	if cfg.Server.TrustedProxies[1] != "127.0.0.1/32" {
		t.Errorf("TrustedProxies[1]: got %q, want 127.0.0.1/32", cfg.Server.TrustedProxies[1])
	}
}

func TestIdentityConfig_Enabled(t *testing.T) {
	if (IdentityConfig{}).Enabled() {
		t.Error("empty identity config should be disabled")
	}
	if !(IdentityConfig{SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "anon"}).Enabled() {
		t.Error("configured identity config should be enabled")
	}
}
