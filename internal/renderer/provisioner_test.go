package renderer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alpha-og/treefrog/internal/config"
	"github.com/alpha-og/treefrog/internal/testutils"
	"github.com/alpha-og/treefrog/internal/testutils/mocks"
	"github.com/alpha-og/treefrog/pkg/runtime"
)

func newTestProvisioner(t *testing.T, cfg *config.Config) (*Provisioner, *mocks.MockRunner, *bytes.Buffer) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRunner := mocks.NewMockRunner(ctrl)
	var sink bytes.Buffer
	p := NewProvisioner(runtime.NewClient(mockRunner), cfg, &sink)
	p.fs = afero.NewMemMapFs()
	return p, mockRunner, &sink
}

func TestProvisioner_EnsureImage_AlreadyPresent(t *testing.T) {
	cfg := config.Default()
	p, mockRunner, _ := newTestProvisioner(t, cfg)
	ctx := testutils.TestContext(t)

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "image", "inspect", cfg.RuntimeImageRef()).
		Return([]byte("[{...}]"), nil)

	// no pull expectation: a present image must short-circuit
	require.NoError(t, p.EnsureImage(ctx))
}

func TestProvisioner_EnsureImage_PullsFromRegistry(t *testing.T) {
	cfg := config.Default()
	p, mockRunner, sink := newTestProvisioner(t, cfg)
	ctx := testutils.TestContext(t)

	ref := cfg.RuntimeImageRef()
	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "image", "inspect", ref).
		Return([]byte("Error: No such image: "+ref), errors.New("exit status 1"))
	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "pull", ref).
		Return([]byte("latest: Pulling from alpha-og/treefrog-texlive\n"), nil)

	require.NoError(t, p.EnsureImage(ctx))
	assert.Contains(t, sink.String(), "Pulling from")
}

func TestProvisioner_EnsureImage_PullsCustomRegistry(t *testing.T) {
	cfg := config.Default()
	cfg.ImageSource = config.ImageSourceCustom
	cfg.CustomRegistry = "registry.example.com/texlive:full"
	p, mockRunner, _ := newTestProvisioner(t, cfg)
	ctx := testutils.TestContext(t)

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "image", "inspect", "registry.example.com/texlive:full").
		Return([]byte("Error: No such image"), errors.New("exit status 1"))
	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "pull", "registry.example.com/texlive:full").
		Return([]byte("full: Pulling from texlive\n"), nil)

	require.NoError(t, p.EnsureImage(ctx))
}

func TestProvisioner_EnsureImage_PullError(t *testing.T) {
	cfg := config.Default()
	p, mockRunner, _ := newTestProvisioner(t, cfg)
	ctx := testutils.TestContext(t)

	ref := cfg.RuntimeImageRef()
	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "image", "inspect", ref).
		Return([]byte("Error: No such image"), errors.New("exit status 1"))
	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "pull", ref).
		Return([]byte("pull access denied"), errors.New("exit status 1"))

	err := p.EnsureImage(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to pull image")
}

func TestProvisioner_EnsureImage_LoadsEmbeddedArchive(t *testing.T) {
	cfg := config.Default()
	cfg.ImageSource = config.ImageSourceEmbedded
	cfg.CustomTarPath = "/images/texlive.tar"
	p, mockRunner, sink := newTestProvisioner(t, cfg)
	ctx := testutils.TestContext(t)

	require.NoError(t, afero.WriteFile(p.fs, "/images/texlive.tar", []byte("tar"), 0o644))

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "image", "inspect", cfg.RuntimeImageRef()).
		Return([]byte("Error: No such image"), errors.New("exit status 1"))
	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "load", "-i", "/images/texlive.tar").
		Return([]byte("Loaded image: treefrog-texlive:latest\n"), nil)

	require.NoError(t, p.EnsureImage(ctx))
	assert.Contains(t, sink.String(), "Loaded image")
}

func TestProvisioner_EnsureImage_MissingArchive(t *testing.T) {
	cfg := config.Default()
	cfg.ImageSource = config.ImageSourceEmbedded
	cfg.CustomTarPath = "/images/missing.tar"
	p, mockRunner, _ := newTestProvisioner(t, cfg)
	ctx := testutils.TestContext(t)

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "image", "inspect", cfg.RuntimeImageRef()).
		Return([]byte("Error: No such image"), errors.New("exit status 1"))

	// no load expectation: the archive check must fail first
	err := p.EnsureImage(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found at /images/missing.tar")
}

func TestProvisioner_EnsureImage_UnknownSource(t *testing.T) {
	cfg := config.Default()
	cfg.ImageSource = "usb"
	p, mockRunner, _ := newTestProvisioner(t, cfg)
	ctx := testutils.TestContext(t)

	mockRunner.EXPECT().
		Run(gomock.Any(), "docker", "image", "inspect", cfg.RuntimeImageRef()).
		Return([]byte("Error: No such image"), errors.New("exit status 1"))

	err := p.EnsureImage(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown image source "usb"`)
}
