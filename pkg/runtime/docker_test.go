package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alpha-og/treefrog/internal/testutils"
	"github.com/alpha-og/treefrog/internal/testutils/mocks"
)

func newTestClient(t *testing.T) (*Client, *mocks.MockRunner) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRunner := mocks.NewMockRunner(ctrl)
	return NewClient(mockRunner), mockRunner
}

func TestClient_Installed(t *testing.T) {
	client, mockRunner := newTestClient(t)

	mockRunner.EXPECT().LookPath("docker").Return("/usr/bin/docker", nil)
	assert.True(t, client.Installed())

	mockRunner.EXPECT().LookPath("docker").Return("", errors.New("executable file not found"))
	assert.False(t, client.Installed())
}

func TestClient_ServerVersion_TrimsOutput(t *testing.T) {
	client, mockRunner := newTestClient(t)
	ctx := testutils.TestContext(t)

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "version", "--format", "{{.Server.Version}}").
		Return([]byte("  24.0.7\n"), nil)

	version, err := client.ServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "24.0.7", version)
}

func TestClient_RemoveForce_ToleratesMissingContainer(t *testing.T) {
	client, mockRunner := newTestClient(t)
	ctx := testutils.TestContext(t)

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "rm", "-f", "treefrog-renderer").
		Return([]byte("Error response from daemon: No such container: treefrog-renderer"), errors.New("exit status 1"))

	_, err := client.RemoveForce(ctx, "treefrog-renderer")
	assert.NoError(t, err)
}

func TestClient_RemoveForce_SurfacesRealErrors(t *testing.T) {
	client, mockRunner := newTestClient(t)
	ctx := testutils.TestContext(t)

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "rm", "-f", "treefrog-renderer").
		Return([]byte("Cannot connect to the Docker daemon"), errors.New("exit status 1"))

	_, err := client.RemoveForce(ctx, "treefrog-renderer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to remove container")
}

func TestClient_IsContainerRunning(t *testing.T) {
	cases := []struct {
		name    string
		out     string
		err     error
		want    bool
		wantErr bool
	}{
		{name: "running", out: "true\n", want: true},
		{name: "stopped", out: "false\n", want: false},
		{name: "missing container", out: "Error: No such container: treefrog-renderer", err: errors.New("exit status 1"), want: false},
		{name: "daemon down", out: "Cannot connect to the Docker daemon", err: errors.New("exit status 1"), wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, mockRunner := newTestClient(t)
			ctx := testutils.TestContext(t)

			mockRunner.EXPECT().
				Run(gomock.Any(), "docker", "inspect", "-f", "{{.State.Running}}", "treefrog-renderer").
				Return([]byte(tc.out), tc.err)

			running, err := client.IsContainerRunning(ctx, "treefrog-renderer")
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, running)
		})
	}
}

func TestClient_RunDetached_BindsLoopback(t *testing.T) {
	client, mockRunner := newTestClient(t)
	ctx := testutils.TestContext(t)

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "run", "-d", "--rm",
			"-p", "127.0.0.1:8081:8080",
			"--name", "treefrog-renderer", "ghcr.io/alpha-og/treefrog-texlive:latest").
		Return([]byte("f2d9a1c3\n"), nil)

	out, err := client.RunDetached(ctx, "treefrog-renderer", 8081, 8080, "ghcr.io/alpha-og/treefrog-texlive:latest")
	require.NoError(t, err)
	assert.Equal(t, "f2d9a1c3\n", string(out))
}
