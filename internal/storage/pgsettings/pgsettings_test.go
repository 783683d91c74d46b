package pgsettings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPGSettings_RepoFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "pickupbox_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/pickupbox_test?sslmode=disable"

	// postgres may accept TCP before it accepts logins
	var st *Storage
	deadline := time.Now().Add(30 * time.Second)
	for {
		st, err = New(dsn)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(st.Close)

	_, ok, err := st.Get(ctx, "matavfall")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.Set(ctx, "matavfall", "2024-01-10"))
	require.NoError(t, st.Set(ctx, "matavfall", "2024-02-01"))
	require.NoError(t, st.Set(ctx, "plantnumber", "42"))

	v, ok, err := st.Get(ctx, "matavfall")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2024-02-01", v)

	keys, err := st.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"matavfall", "plantnumber"}, keys)

	// schema init is repeatable
	st2, err := New(dsn)
	require.NoError(t, err)
	st2.Close()
}
