package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fpang/cinegen/internal/chat"
	"github.com/fpang/cinegen/internal/cli"
	"github.com/fpang/cinegen/internal/media"
	"github.com/fpang/cinegen/internal/studio"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Generate flags
var (
	modeFlag        string
	imageFlag       string
	pickImageFlag   bool
	skipEnhanceFlag bool
	variationFlag   int
	outputFlag      string
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a cinematic image or video",
	Long: `Generate enhances the prompt (unless --skip-enhance) and renders it.

With --mode video and a reference image (--image or --pick-image) the image is
animated. With --variation the prompt is enhanced first and the chosen
variation is rendered instead of the main prompt. The result is written to
--output, or to cinegen-<run>.png / .mp4 in the current directory.`,
	Run: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&modeFlag, "mode", "image", "Media to generate: image or video")
	generateCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Reference image to animate (video mode)")
	generateCmd.Flags().BoolVar(&pickImageFlag, "pick-image", false, "Choose the reference image with a native file dialog")
	generateCmd.Flags().BoolVar(&skipEnhanceFlag, "skip-enhance", false, "Send the prompt to the generator verbatim")
	generateCmd.Flags().IntVar(&variationFlag, "variation", 0, "Render variation 1 or 2 of the enhanced prompt")
	generateCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file")
}

func runGenerate(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx, stop := signalContext()
	defer stop()

	mode, err := studio.ParseMode(modeFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --mode")
	}
	if variationFlag != 0 && variationFlag != 1 && variationFlag != 2 {
		log.Fatal().Int("variation", variationFlag).Msg("--variation must be 1 or 2")
	}
	if variationFlag != 0 && skipEnhanceFlag {
		log.Fatal().Msg("--variation needs an enhanced prompt; drop --skip-enhance")
	}

	reference := loadReference(mode)

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" && (reference == "" || variationFlag != 0) {
		prompt = cli.PromptForText(os.Stdin, os.Stderr, "Prompt")
	}

	keys := cli.NewKeyring(noPromptFlag)
	cli.RequireKey(ctx, keys, validateFlag, "")

	orch := studio.New(keys, studio.BackendFactory(cfg.Models, cfg.Poller()))
	unsubscribe := orch.Subscribe(progressPrinter())
	defer unsubscribe()

	log.Info().
		Str("mode", string(mode)).
		Bool("reference", reference != "").
		Bool("skip_enhancement", skipEnhanceFlag).
		Int("variation", variationFlag).
		Msg("Starting generation")

	start := time.Now()
	var snap studio.Snapshot
	if variationFlag != 0 {
		if _, err := orch.Enhance(ctx, prompt); err != nil {
			fatalRun(err)
		}
		snap, err = orch.SelectVariation(ctx, variationFlag, mode)
	} else {
		snap, err = orch.Run(ctx, studio.Request{
			Input:           prompt,
			Mode:            mode,
			ReferenceImage:  reference,
			SkipEnhancement: skipEnhanceFlag,
		})
	}
	if err != nil {
		fatalRun(err)
	}

	if snap.Enhancement != nil && variationFlag == 0 && !skipEnhanceFlag {
		fmt.Fprint(os.Stderr, "\n"+cli.FormatEnhancement(snap.Enhancement)+"\n")
	}

	path := outputPath(snap)
	n, err := media.Save(ctx, nil, snap.Media.URL, path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save media")
	}

	fmt.Fprintf(os.Stderr, "Prompt: %s\n", cli.Truncate(snap.Media.Prompt, 200))
	fmt.Fprintf(os.Stderr, "Done in %s (%d bytes)\n", cli.FormatDurationShort(time.Since(start)), n)
	fmt.Println(path)
}

// loadReference returns the reference image as a data URL, or "" when none
// was given. Image mode ignores it.
func loadReference(mode studio.Mode) string {
	path := imageFlag
	if pickImageFlag {
		selected, err := zenity.SelectFile(
			zenity.Title("Select reference image"),
			zenity.FileFilters{
				{
					Name:     "Images",
					Patterns: []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.bmp", "*.tif", "*.tiff"},
				},
			},
		)
		if err != nil {
			if errors.Is(err, zenity.ErrCanceled) {
				log.Fatal().Msg("No reference image selected")
			}
			log.Fatal().Err(err).Msg("File picker failed")
		}
		path = selected
	}
	if path == "" {
		return ""
	}
	if mode != studio.ModeVideo {
		log.Warn().Str("path", path).Msg("Reference image is only used in video mode; ignoring it")
		return ""
	}

	path, err := cli.ResolveImageFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reference image")
	}
	encoded, err := media.EncodeFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read reference image")
	}
	return encoded
}

// progressPrinter prints each new progress message once.
func progressPrinter() func(studio.Snapshot) {
	var mu sync.Mutex
	var last string
	return func(s studio.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		msg := s.Status.ProgressMessage
		if msg != "" && msg != last {
			fmt.Fprintln(os.Stderr, msg)
		}
		last = msg
	}
}

func outputPath(snap studio.Snapshot) string {
	if outputFlag != "" {
		return outputFlag
	}
	ext := ".png"
	if snap.Media.Kind == studio.ModeVideo {
		ext = ".mp4"
	}
	id := snap.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return "cinegen-" + id + ext
}

func fatalRun(err error) {
	if errors.Is(err, studio.ErrCredentialMissing) {
		log.Fatal().Err(err).Msg(chat.MsgCredentialMissing)
	}
	event := log.Fatal().Err(err).Str("kind", chat.KindOf(err).String())
	if chat.IsCredentialIssue(err) {
		event = event.Bool("credential_issue", true)
	}
	event.Msg(chat.UserMessage(err))
}
