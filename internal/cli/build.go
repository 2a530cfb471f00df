package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/png2gif/internal/engine"
	"github.com/ivlev/png2gif/internal/share"
)

type buildOptions struct {
	input      string
	output     string
	publicRoot string
	pattern    string
	delay      int
	loop       int
	quality    int
	width      int
	height     int
	qr         bool
	baseURL    string
}

// NewBuildCommand assembles the GIF once and writes it to disk.
func NewBuildCommand(root *RootOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Собрать GIF и сохранить в файл",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "папка с PNG-кадрами")
	f.StringVarP(&opts.output, "output", "o", "", "путь к GIF")
	f.StringVar(&opts.publicRoot, "public-root", "", "корень публичной папки для относительного пути")
	f.StringVar(&opts.pattern, "pattern", "", "регулярное выражение для имён кадров (по умолчанию *.png)")
	f.IntVar(&opts.delay, "delay", 0, "задержка кадра, мс")
	f.IntVar(&opts.loop, "loop", 0, "число повторов (0 - бесконечно)")
	f.IntVar(&opts.quality, "quality", 0, "шаг выборки палитры (1 - лучшее качество)")
	f.IntVar(&opts.width, "width", 0, "ширина кадра (0 - по первому кадру)")
	f.IntVar(&opts.height, "height", 0, "высота кадра (0 - по первому кадру)")
	f.BoolVar(&opts.qr, "qr", false, "сохранить QR-код со ссылкой рядом с GIF")
	f.StringVar(&opts.baseURL, "base-url", "", "публичный URL для QR-кода")

	return cmd
}

func runBuild(cmd *cobra.Command, root *RootOptions, opts *buildOptions) error {
	cfg, logger, err := root.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	// Флаги перекрывают значения из файла, только если заданы явно.
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Assembly.InputDir = opts.input
	}
	if flags.Changed("output") {
		cfg.Output.Path = opts.output
	}
	if flags.Changed("public-root") {
		cfg.Output.PublicRoot = opts.publicRoot
	}
	if flags.Changed("pattern") {
		cfg.Assembly.Pattern = opts.pattern
	}
	if flags.Changed("delay") {
		cfg.Assembly.DelayMs = opts.delay
	}
	if flags.Changed("loop") {
		cfg.Assembly.LoopCount = opts.loop
	}
	if flags.Changed("quality") {
		cfg.Assembly.Quality = opts.quality
	}
	if flags.Changed("width") {
		cfg.Assembly.Width = opts.width
	}
	if flags.Changed("height") {
		cfg.Assembly.Height = opts.height
	}
	if flags.Changed("base-url") {
		cfg.Server.BaseURL = opts.baseURL
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[*] Источник: %s\n", cfg.Assembly.InputDir)

	assembler := engine.New(engine.WithLogger(logger))
	res, err := assembler.AssembleToFile(cfg.Assembly, cfg.Output)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[*] Кадров: %d | Размер: %dx%d | %d байт\n", res.Frames, res.Width, res.Height, len(res.Data))

	if opts.qr {
		if err := writeQR(cfg.Server.BaseURL, res); err != nil {
			return err
		}
	}

	shown := res.RelativePath
	if shown == "" {
		shown = res.Path
	}
	fmt.Fprintf(out, "[+++] Успех! GIF сохранён: %s\n", shown)
	return nil
}

func writeQR(baseURL string, res *engine.Result) error {
	if res.RelativePath == "" {
		return fmt.Errorf("qr: %s is outside the public root", res.Path)
	}
	u, err := share.PublicURL(baseURL, res.RelativePath)
	if err != nil {
		return fmt.Errorf("qr: %w", err)
	}
	png, err := share.QRCode(u, share.DefaultQRSize)
	if err != nil {
		return fmt.Errorf("qr: %w", err)
	}
	return os.WriteFile(res.Path+".qr.png", png, 0644)
}
