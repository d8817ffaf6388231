package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openclaw/mind/internal/config"
	"github.com/openclaw/mind/internal/dream"
	"github.com/openclaw/mind/internal/hub"
	"github.com/openclaw/mind/internal/identity"
	"github.com/openclaw/mind/internal/manager"
	"github.com/openclaw/mind/internal/mindtools"
	"github.com/openclaw/mind/internal/propose"
	"github.com/openclaw/mind/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "openclaw-mind",
		Short: "Per-agent behavioral learning engine for OpenClaw agents",
	}

	f := rootCmd.PersistentFlags()
	f.String("data-dir", "data", "directory for persistent agent state")
	f.String("agent", "main", "agent identifier")
	f.Int("dashboard-port", 8080, "HTTP port for the dashboard")
	f.Int("since-days", 7, "dashboard log window in days")
	f.String("proposal-model", "claude-sonnet-4-5", "Anthropic model for dream proposals")

	// Bind flags to viper. Viper keys use underscores (data_dir) so they
	// match the env var suffix after stripping the OPENCLAW_ prefix.
	bindFlag := func(viperKey, flagName string) {
		_ = viper.BindPFlag(viperKey, f.Lookup(flagName))
	}
	bindFlag("data_dir", "data-dir")
	bindFlag("agent", "agent")
	bindFlag("dashboard_port", "dashboard-port")
	bindFlag("since_days", "since-days")
	bindFlag("proposal_model", "proposal-model")

	viper.SetEnvPrefix("OPENCLAW")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	rootCmd.AddCommand(serveCmd(), mcpCmd(), dreamCmd(), identityCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the mind dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			fmt.Printf("OpenClaw Mind %s starting\n", config.Version)
			fmt.Printf("  Data: %s\n", cfg.DataDir)
			fmt.Printf("  Dashboard: :%d\n", cfg.DashboardPort)

			mgr := manager.New(cfg.DataDir)
			defer mgr.CloseAll()

			eventHub := hub.New()
			server := web.New(&cfg, mgr, eventHub)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			go func() {
				sig := <-sigCh
				log.Printf("received %s, shutting down...", sig)
				cancel()
			}()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP stdio server exposing the mind tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			mgr := manager.New(cfg.DataDir)
			defer mgr.CloseAll()

			st, err := mgr.MindStore(cfg.Agent)
			if err != nil {
				return err
			}
			return mindtools.Run(st, nil)
		},
	}
}

func dreamCmd() *cobra.Command {
	var days int
	var runPropose bool
	var save bool

	cmd := &cobra.Command{
		Use:   "dream",
		Short: "Run a dream phase and print the analysis prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			mgr := manager.New(cfg.DataDir)
			defer mgr.CloseAll()

			st, err := mgr.MindStore(cfg.Agent)
			if err != nil {
				return err
			}

			res := dream.Plan(st, days)
			fmt.Fprintf(os.Stderr, "%d logs analyzed, %d learnings pruned\n", res.LogCount, res.Pruned)

			if !runPropose {
				fmt.Println(res.Prompt)
				return nil
			}

			proposals, err := propose.Learnings(cmd.Context(), res.Prompt, cfg.ProposalModel)
			if err != nil {
				return fmt.Errorf("propose learnings: %w", err)
			}
			if len(proposals) == 0 {
				fmt.Println("No learnings proposed.")
				return nil
			}

			for _, p := range proposals {
				if save {
					id := st.AddLearning(p.Title, p.Content, p.Rationale, false)
					fmt.Fprintf(os.Stderr, "saved pending learning %d\n", id)
				}
				data, _ := json.MarshalIndent(p, "", "  ")
				fmt.Println(string(data))
			}
			if save {
				fmt.Fprintln(os.Stderr, "Proposals saved as pending. Approve or reject them explicitly.")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", dream.DefaultDays, "analysis window in days (1-30)")
	cmd.Flags().BoolVar(&runPropose, "propose", false, "send the prompt to the Anthropic API and print proposals")
	cmd.Flags().BoolVar(&save, "save", false, "save proposals as pending learnings (requires --propose)")
	return cmd
}

func identityCmd() *cobra.Command {
	var sessionKey string

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Print the rendered Spiritual Biology prompt section",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			mgr := manager.New(cfg.DataDir)
			defer mgr.CloseAll()

			st, err := mgr.MindStore(cfg.Agent)
			if err != nil {
				return err
			}

			fmt.Println(identity.NewBuilder().Build(st, sessionKey))
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionKey, "session", "", "session key for selective activation and action memory")
	return cmd
}
