package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := load(viper.New())

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "postgres", cfg.RemoteBackend)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, []string{"batches"}, cfg.RefetchAfterWrite)
	assert.Empty(t, cfg.ProvisionTables)
	assert.False(t, cfg.BackendConfigured, "empty DATABASE_URL must count as unconfigured")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://cc:cc@db:5432/cc?sslmode=disable")
	t.Setenv("REMOTE_TIMEOUT", "750ms")
	t.Setenv("PROVISION_TABLES", "students, teachers,")
	t.Setenv("QUEUE_BACKEND", "REDIS")

	cfg := load(viper.New())

	assert.True(t, cfg.BackendConfigured)
	assert.Equal(t, 750*time.Millisecond, cfg.RemoteTimeout)
	assert.Equal(t, []string{"students", "teachers"}, cfg.ProvisionTables)
	assert.Equal(t, "redis", cfg.QueueBackend)
}

func TestBackendConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  App
		want bool
	}{
		{"memory backend", App{RemoteBackend: "memory"}, true},
		{"postgres with url", App{RemoteBackend: "postgres", DatabaseURL: "postgres://u:p@h/db"}, true},
		{"postgres placeholder", App{RemoteBackend: "postgres", DatabaseURL: "postgres://placeholder.example"}, false},
		{"postgres blank", App{RemoteBackend: "postgres", DatabaseURL: "   "}, false},
		{"unknown backend", App{RemoteBackend: "firebase", DatabaseURL: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backendConfigured(tt.cfg))
		})
	}
}

func TestLoad_AcademySeeds(t *testing.T) {
	t.Setenv("ACADEMY_SEEDS", "AC001:SM Tutorial:demo123, broken, :x:y,AC002::pa:ss")

	cfg := load(viper.New())

	assert.Equal(t, []AcademySeed{
		{Key: "AC001", Name: "SM Tutorial", Password: "demo123"},
		{Key: "AC002", Name: "", Password: "pa:ss"},
	}, cfg.AcademySeeds)
}
