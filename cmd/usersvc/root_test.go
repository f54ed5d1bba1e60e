package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/user-service/pkg/logger"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "seed")
}

func TestSeedCmd_MemoryStore(t *testing.T) {
	logger.Reset()
	t.Cleanup(logger.Reset)

	t.Setenv("TOKEN_KEY", "k")
	t.Setenv("ROOT_PASSWORD", "pw")
	t.Setenv("ROOT_HASH_ROUNDS", "4")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ENV", "test")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"seed"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "seed complete")
}

func TestSeedCmd_MissingConfig(t *testing.T) {
	logger.Reset()
	t.Cleanup(logger.Reset)

	t.Setenv("TOKEN_KEY", "")
	t.Setenv("ROOT_PASSWORD", "")
	t.Setenv("STORE_DRIVER", "memory")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"seed"})

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
