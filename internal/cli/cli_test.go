package cli

import (
	"bytes"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/png2gif/internal/config"
	"github.com/ivlev/png2gif/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	public := t.TempDir()
	images := filepath.Join(public, "images")
	require.NoError(t, os.Mkdir(images, 0755))
	testutil.WritePNG(t, images, "001.png", 4, 2, color.NRGBA{R: 255, A: 255})
	testutil.WritePNG(t, images, "002.png", 2, 4, color.NRGBA{B: 255, A: 255})
	output := filepath.Join(public, "output.gif")

	stdout, err := run(t, "build",
		"--input", images,
		"--output", output,
		"--public-root", public,
		"--delay", "200",
		"--loop", "2",
		"--qr",
		"--base-url", "http://gif.test/public",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "[+++] Успех! GIF сохранён: output.gif")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, g.Image, 2)
	assert.Equal(t, 2, g.LoopCount)
	assert.Equal(t, []int{20, 20}, g.Delay)
	assert.Equal(t, 4, g.Config.Width)
	assert.Equal(t, 2, g.Config.Height)

	_, err = os.Stat(output + ".qr.png")
	assert.NoError(t, err)
}

func TestBuildCommandUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "frame.PNG", 3, 3, color.NRGBA{G: 255, A: 255})
	output := filepath.Join(dir, "anim.gif")

	cfg := config.Default()
	cfg.Assembly.InputDir = dir
	cfg.Assembly.Width = 6
	cfg.Assembly.Height = 6
	cfg.Output.Path = output
	cfg.Output.PublicRoot = ""
	cfgPath := filepath.Join(dir, "png2gif.yaml")
	require.NoError(t, config.Write(cfg, cfgPath))

	stdout, err := run(t, "build", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 6, g.Config.Width)
}

func TestBuildCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "build", "--input", dir, "--output", filepath.Join(dir, "x.gif"))
	assert.ErrorContains(t, err, "no input frames")

	_, err = run(t, "build", "--input", dir, "--delay", "-1")
	assert.ErrorContains(t, err, "invalid config")

	_, err = run(t, "--log-format", "xml", "build")
	assert.ErrorContains(t, err, "invalid log format")
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "png2gif.yaml")

	_, err := run(t, "init-config", path)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = run(t, "init-config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "init-config", "--force", path)
	assert.NoError(t, err)
}
