package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fpang/cinegen/internal/chat"
	"github.com/fpang/cinegen/internal/cli"
	"github.com/fpang/cinegen/internal/studio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var enhanceJSONFlag bool

var enhanceCmd = &cobra.Command{
	Use:   "enhance [prompt]",
	Short: "Enhance a prompt and print the result with two variations",
	Run:   runEnhance,
}

func init() {
	enhanceCmd.Flags().BoolVar(&enhanceJSONFlag, "json", false, "Print the enhancement as JSON")
}

func runEnhance(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx, stop := signalContext()
	defer stop()

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		prompt = cli.PromptForText(os.Stdin, os.Stderr, "Prompt")
	}
	if prompt == "" {
		log.Fatal().Msg("A prompt is required")
	}

	keys := cli.NewKeyring(noPromptFlag)
	cli.RequireKey(ctx, keys, validateFlag, "")

	orch := studio.New(keys, studio.BackendFactory(cfg.Models, cfg.Poller()))
	enh, err := orch.Enhance(ctx, prompt)
	if err != nil {
		log.Fatal().Err(err).Str("kind", chat.KindOf(err).String()).Msg(chat.UserMessage(err))
	}

	if enhanceJSONFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(enh)
		return
	}
	fmt.Print(cli.FormatEnhancement(enh))
}
