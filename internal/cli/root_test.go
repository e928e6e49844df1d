package cli

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pixelart/pkg/config"
	"github.com/matzehuels/pixelart/pkg/core/pixelart"
	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/media"
)

// execute runs the root command with args in an isolated environment.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	b := pixelart.NewBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, pixelart.RGB{R: uint8(x * 6), G: uint8(y * 6), B: 40})
		}
	}
	if err := media.WriteFile(path, media.NewStill(media.PNG, b), media.EncodeOptions{}); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"convert", "palette", "serve", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag missing")
	}
}

func TestConvertCommandFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "cat.png")
	writePNG(t, in, 40, 30)

	if err := execute(t, "convert", in, "-k", "3", "--block-size", "5"); err != nil {
		t.Fatalf("convert error: %v", err)
	}

	img, err := media.ReadFile(filepath.Join(dir, "output", "pixelated_cat.png"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if f := img.Frames()[0]; f.W != 40 || f.H != 30 {
		t.Errorf("output is %dx%d, want 40x30", f.W, f.H)
	}
}

func TestConvertCommandExplicitOutput(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "cat.png")
	writePNG(t, in, 20, 20)
	out := filepath.Join(dir, "small.png")

	if err := execute(t, "convert", in, "-o", out, "--block-size", "4", "--no-cache"); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestConvertCommandDirectory(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "b.png"), 20, 20)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644)
	outDir := filepath.Join(t.TempDir(), "out")

	err := execute(t, "convert", dir, "--out-dir", outDir, "--block-size", "4")
	if err == nil || !strings.Contains(err.Error(), "1 of 4 files failed") {
		t.Fatalf("convert dir error = %v, want one failure", err)
	}
	for _, name := range []string{"pixelated_a.png", "pixelated_b.png"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestConvertCommandURL(t *testing.T) {
	isolate(t)
	src := filepath.Join(t.TempDir(), "remote.png")
	writePNG(t, src, 24, 24)
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	outDir := t.TempDir()
	if err := execute(t, "convert", srv.URL+"/img/remote.png", "--out-dir", outDir, "--block-size", "6"); err != nil {
		t.Fatalf("convert url error: %v", err)
	}
	if _, err := media.ReadFile(filepath.Join(outDir, "pixelated_remote.png")); err != nil {
		t.Errorf("read output: %v", err)
	}

	// No extension in the URL: the format is sniffed and the name falls back.
	if err := execute(t, "convert", srv.URL, "--out-dir", outDir, "--block-size", "6"); err != nil {
		t.Fatalf("convert bare url error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "pixelated_download.png")); err != nil {
		t.Errorf("sniffed output not written: %v", err)
	}

	if err := execute(t, "palette", srv.URL+"/img/remote.png", "-n", "2"); err != nil {
		t.Errorf("palette url error: %v", err)
	}
}

func TestConvertCommandErrors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "cat.png")
	writePNG(t, in, 20, 20)

	tests := []struct {
		name string
		args []string
		code perrors.Code
	}{
		{"missing input", []string{"convert", filepath.Join(dir, "nope.png")}, perrors.ErrCodeFileNotFound},
		{"even kernel", []string{"convert", in, "-k", "4"}, perrors.ErrCodeInvalidKernel},
		{"scale too large", []string{"convert", in, "-s", "1.5"}, perrors.ErrCodeInvalidScale},
		{"zero kernel", []string{"convert", in, "-k", "0"}, perrors.ErrCodeInvalidKernel},
		{"negative kernel", []string{"convert", in, "-k", "-3"}, perrors.ErrCodeInvalidKernel},
		{"zero scale", []string{"convert", in, "-s", "0"}, perrors.ErrCodeInvalidScale},
		{"zero block size", []string{"convert", in, "--block-size", "0"}, perrors.ErrCodeInvalidBlockSize},
		{"zero quality", []string{"convert", in, "--quality", "0"}, perrors.ErrCodeInvalidInput},
		{"output for directory", []string{"convert", dir, "-o", "x.png"}, perrors.ErrCodeInvalidInput},
		{"wrong output extension", []string{"convert", in, "-o", filepath.Join(dir, "x.jpg"), "--block-size", "2"}, perrors.ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execute(t, tt.args...)
			if !perrors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestConvertFlagsOverrideConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Kernel = 5
	cfg.BlockSize = 12
	cfg.JPEGQuality = 70

	var flags convertFlags
	cmd := &cobra.Command{Use: "convert"}
	cmd.Flags().IntVarP(&flags.kernel, "kernel", "k", 9, "")
	cmd.Flags().Float64VarP(&flags.scale, "scale", "s", 0.05, "")
	cmd.Flags().IntVar(&flags.blockSize, "block-size", 0, "")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "")
	cmd.Flags().IntVar(&flags.maxDim, "max-dimension", 0, "")
	cmd.Flags().IntVar(&flags.quality, "quality", 95, "")
	if err := cmd.ParseFlags([]string{"-k", "7", "-s", "0.1"}); err != nil {
		t.Fatal(err)
	}

	opts, err := flags.options(cmd, cfg)
	if err != nil {
		t.Fatalf("options error: %v", err)
	}
	if opts.KernelSize != 7 {
		t.Errorf("KernelSize = %d, want 7 from flag", opts.KernelSize)
	}
	if opts.ScaleFactor != 0.1 || opts.BlockSize != 0 {
		t.Errorf("scale flag should clear the configured block size, got scale %v block %d", opts.ScaleFactor, opts.BlockSize)
	}
	if opts.JPEGQuality != 70 {
		t.Errorf("JPEGQuality = %d, want 70 from config", opts.JPEGQuality)
	}
}

func TestConfigFileFlag(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "cat.png")
	writePNG(t, in, 20, 20)

	cfgPath := filepath.Join(dir, "pixelart.toml")
	os.WriteFile(cfgPath, []byte("kernel = 4\n"), 0644)
	if err := execute(t, "--config", cfgPath, "convert", in); !perrors.Is(err, perrors.ErrCodeInvalidKernel) {
		t.Errorf("config kernel = 4 error = %v, want INVALID_KERNEL", err)
	}

	os.WriteFile(cfgPath, []byte("scale = 0.0\n"), 0644)
	if err := execute(t, "--config", cfgPath, "convert", in); !perrors.Is(err, perrors.ErrCodeInvalidScale) {
		t.Errorf("config scale = 0 error = %v, want INVALID_SCALE", err)
	}

	if err := execute(t, "--config", filepath.Join(dir, "missing.toml"), "convert", in); err == nil {
		t.Error("a missing explicit config file should fail")
	}
}

func TestPaletteCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "cat.png")
	writePNG(t, in, 20, 20)

	if err := execute(t, "palette", in, "-n", "3"); err != nil {
		t.Fatalf("palette error: %v", err)
	}
	if err := execute(t, "palette", in, "--method", "median"); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("unknown method error = %v, want INVALID_INPUT", err)
	}
	if err := execute(t, "palette", in, "-n", "0"); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("zero colors error = %v, want INVALID_INPUT", err)
	}
}

func TestDisplayURL(t *testing.T) {
	tests := []struct{ addr, want string }{
		{":8080", "http://localhost:8080"},
		{"0.0.0.0:9000", "http://0.0.0.0:9000"},
	}
	for _, tt := range tests {
		if got := displayURL(tt.addr); got != tt.want {
			t.Errorf("displayURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
