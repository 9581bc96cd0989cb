// funclens renders code-lens annotations (reference counts, diagnostics,
// git blame, complexity) above or beside function definitions.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/funclens/funclens/internal/cache"
	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/discover"
	"github.com/funclens/funclens/internal/discovery"
	"github.com/funclens/funclens/internal/executor"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/model"
	"github.com/funclens/funclens/internal/provider"
	"github.com/funclens/funclens/internal/render"
	"github.com/funclens/funclens/internal/toon"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfgPath  string
	profile  string
	logLevel string
	logger   *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "funclens",
		Short:         "Function lens annotations for source files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(a.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", a.logLevel)
			}
			a.logger = log.NewWithOptions(os.Stderr, log.Options{
				Prefix: "funclens",
				Level:  level,
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", defaultConfigPath(), "config file path")
	root.PersistentFlags().StringVar(&a.profile, "profile", "", "profile name (default: first in config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newRenderCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newProvidersCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the funclens version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})
	return root
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "funclens.toml"
	}
	return filepath.Join(dir, "funclens", "funclens.toml")
}

// engine bundles one configured lens pipeline.
type engine struct {
	profile  *config.Profile
	exec     *executor.Executor
	ws       *host.Workspace
	renderer *render.Renderer
	reports  chan *model.LensReport
}

// newEngine wires cache, discovery, providers, and executor for root.
// renderBufSize bounds the report channel; watch mode drains it
// continuously while render mode reads a single fresh report.
func (a *app) newEngine(root string) (*engine, error) {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return nil, err
	}
	profile, err := cfg.Profile(a.profile)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cache.DefaultSize)
	if err != nil {
		return nil, err
	}
	disc := discovery.NewService(c, []host.SymbolSource{discovery.NewTreeSitterSource(a.logger)}, a.logger)

	registry, err := provider.Build(profile, provider.Deps{
		Logger: a.logger,
		Root:   root,
		Style:  profile.Style,
	})
	if err != nil {
		return nil, err
	}

	excluder := discover.NewExcluder(root, profile.Limits.ExcludePatterns, profile.Limits.ExcludeGitignored)

	eng := &engine{
		profile:  profile,
		ws:       host.NewWorkspace(a.logger),
		renderer: render.New(os.Stdout, profile.Style),
		reports:  make(chan *model.LensReport, 16),
	}
	eng.exec = executor.New(profile, registry, disc, excluder, func(buf host.Buffer, phase model.Phase, lenses []model.RenderedLens) {
		select {
		case eng.reports <- render.Report(buf, phase, lenses):
		default:
		}
	}, a.logger)

	eng.ws.OnChange(func(buf host.Buffer) { eng.exec.Refresh(buf) })
	eng.ws.OnClose(func(id model.BufferID) { eng.exec.CloseBuffer(id) })
	return eng, nil
}

// waitFresh blocks until the fresh-phase report for buf arrives, or the
// provider timeout (plus margin) elapses.
func (eng *engine) waitFresh(buf host.Buffer) *model.LensReport {
	deadline := time.After(time.Duration(eng.profile.ProviderTimeoutMs)*time.Millisecond + time.Second)
	for {
		select {
		case report := <-eng.reports:
			if report.File == buf.Path() && report.Phase == model.PhaseFresh {
				return report
			}
		case <-deadline:
			return &model.LensReport{File: buf.Path(), Language: buf.Language(), Phase: model.PhaseFresh}
		}
	}
}

func newRenderCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "render <file>...",
		Short: "Render lens annotations for files once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			eng, err := a.newEngine(root)
			if err != nil {
				return err
			}
			for _, path := range args {
				buf, err := eng.ws.Open(path)
				if err != nil {
					return err
				}
				eng.exec.RefreshNow(buf)
				report := eng.waitFresh(buf)

				switch format {
				case "toon":
					fmt.Println(toon.Encode(report))
				case "text":
					if err := eng.renderer.Render(buf, report.Lenses); err != nil {
						return err
					}
				default:
					return fmt.Errorf("unknown format %q", format)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text, toon)")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>...",
		Short: "Re-render lens annotations whenever files change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			eng, err := a.newEngine(root)
			if err != nil {
				return err
			}

			for _, path := range args {
				buf, err := eng.ws.Open(path)
				if err != nil {
					return err
				}
				eng.exec.RefreshNow(buf)
			}

			stop := make(chan struct{})
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sig
				close(stop)
			}()

			go func() {
				for report := range eng.reports {
					buf, ok := eng.ws.BufferByPath(report.File)
					if !ok {
						continue
					}
					fmt.Printf("── %s (%s)\n", report.File, report.Phase)
					if err := eng.renderer.Render(buf, report.Lenses); err != nil {
						a.logger.Warn("render failed", "err", err)
					}
				}
			}()

			return eng.ws.Watch(stop)
		},
	}
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List built-in lens providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range provider.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}
}
