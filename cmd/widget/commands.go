package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/formatting"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/mcptools"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/render"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/terminal"
)

func newAskCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant backend a question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			normalizer, err := loadNormalizer(cfg)
			if err != nil {
				return err
			}
			client := newBackendClient(cfg, logger)
			composer := render.NewComposer(cfg.Widget, normalizer, logger)
			name := composer.Config().AssistantName

			out := cmd.OutOrStdout()
			tr := terminal.NewRenderer(out)

			ctx := cmd.Context()
			resp, err := client.Chat(ctx, strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(out, tr.Error(name, render.ErrorMessage))
				return err
			}

			msg, err := composer.Compose(ctx, resp.Answer, resp.Sources)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, tr.Message(name, msg))
			return nil
		},
	}
}

func newFormatCmd() *cobra.Command {
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Format an answer read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			answer := formatting.Format(string(raw))
			out := cmd.OutOrStdout()
			if asHTML {
				fmt.Fprintln(out, formatting.RenderHTML(answer))
				return nil
			}
			fmt.Fprintln(out, terminal.NewRenderer(out).Answer(answer))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "print the HTML fragment instead of terminal text")
	return cmd
}

func newNormalizeCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "normalize <url>...",
		Short: "Print canonical URLs and display labels for source links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			normalizer, err := loadNormalizer(cfg)
			if err != nil {
				return err
			}
			list, err := normalizer.NormalizeAll(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			fmt.Fprintln(out, terminal.NewRenderer(out).Sources(list))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of terminal text")
	return cmd
}

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve format_answer and normalize_sources as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			normalizer, err := loadNormalizer(cfg)
			if err != nil {
				return err
			}
			server := mcptools.NewServer("nestle-chat-widget", version, normalizer, logger)
			return server.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
