package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("LEVELHUB_AUTH_JWT_SECRET", "env-secret-at-least-16")
	t.Setenv("LEVELHUB_SERVER_PORT", "9090")
	t.Setenv("LEVELHUB_AUTH_ACCESS_TOKEN_TTL", "5m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Auth.AccessTokenTTL != 5*time.Minute {
		t.Errorf("期望 access_token_ttl=5m，实际=%v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("refresh_token_ttl 应取默认值，实际=%v", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.RateLimit.AuthLimit != 10 || cfg.RateLimit.AuthWindow != time.Minute {
		t.Errorf("限流默认值错误: %+v", cfg.RateLimit)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 7000\nauth:\n  jwt_secret: file-secret-at-least-16\ndb:\n  name: lessons\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.Database.Name != "lessons" {
		t.Errorf("配置文件未生效: port=%d db=%s", cfg.Server.Port, cfg.Database.Name)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("未配置项应取默认值，实际 host=%s", cfg.Database.Host)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("LEVELHUB_AUTH_JWT_SECRET", "")
	if _, err := Load(""); err == nil {
		t.Fatal("缺少 jwt_secret 时应返回错误")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "0123456789abcdef", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	short := valid
	short.Auth.JWTSecret = "short"
	if short.Validate() == nil {
		t.Error("过短的 jwt_secret 应报错")
	}

	badPort := valid
	badPort.Server.Port = 70000
	if badPort.Validate() == nil {
		t.Error("越界端口应报错")
	}

	zeroTTL := valid
	zeroTTL.Auth.AccessTokenTTL = 0
	if zeroTTL.Validate() == nil {
		t.Error("有效期为 0 应报错")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable", Timezone: "UTC"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC"
	if got := c.DSN(); got != want {
		t.Errorf("DSN 期望 %q，实际 %q", want, got)
	}
}
