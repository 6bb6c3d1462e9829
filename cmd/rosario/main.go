// Rosario is a spoken, bilingual rosary companion.
//
// Usage:
//
//	rosario pray [joyful|sorrowful|glorious|luminous|today] [flags]
//	rosario sacred
//	rosario sequence [mystery|sacred]
//	rosario segments <mystery|sacred> <step>
//	rosario progress show|reset
//	rosario prefs show|set
package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/rosario/internal/config"
	"github.com/hammamikhairi/rosario/internal/content"
	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
	"github.com/hammamikhairi/rosario/internal/progress"
	"github.com/hammamikhairi/rosario/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "rosario",
	Short: "Pray the rosary, read aloud in English or Spanish",
	Long: `Rosario walks through the rosary one step at a time and reads each
prayer aloud with Azure neural voices (or silently, at reading pace, when
no speech keys are configured).

Progress is saved per mystery set and only for the current day; the next
day starts from the beginning. Settings come from flags, ROSARIO_*
environment variables, and an optional rosario.yaml in the data dir.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	config.AddFlags(rootCmd.PersistentFlags(), viper.GetViper())
	registerCommands()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func registerCommands() {
	// Bare "rosario" prays today's mysteries.
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.Context(), "")
	}

	rootCmd.AddCommand(prayCmd())
	rootCmd.AddCommand(sacredCmd())
	rootCmd.AddCommand(sequenceCmd())
	rootCmd.AddCommand(segmentsCmd())
	rootCmd.AddCommand(progressCmd())
	rootCmd.AddCommand(prefsCmd())
}

// runtime is what every command needs: config, logging, content, and
// the progress store.
type runtime struct {
	cfg     *config.Config
	log     *logger.Logger
	content *content.Provider
	store   domain.KVStore
	tracker *progress.Tracker
	closers []io.Closer
}

func setup(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}
	logOut := rt.openLog()

	// Third-party libs (the whisper transcriber) log through the
	// standard logger; send them to the same place.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	rt.log = logger.New(logger.ParseLevel(cfg.Verbose, cfg.Quiet), logOut)

	rt.content, err = content.New(rt.log.Named("content"))
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("loading prayers: %w", err)
	}

	db, err := storage.OpenSQLite(ctx, cfg.DBPath(), rt.log.Named("store"))
	if err != nil {
		rt.log.Warn("progress will not be saved: %v", err)
		rt.store = storage.NewMemoryStore(rt.log.Named("store"))
	} else {
		rt.store = db
		rt.closers = append(rt.closers, db)
	}
	rt.tracker = progress.New(rt.store, rt.log.Named("progress"))
	return rt, nil
}

// openLog directs logs to a file by default so the prompt stays clean.
func (rt *runtime) openLog() io.Writer {
	path := rt.cfg.LogFile
	if path == "" || path == "stderr" {
		return os.Stderr
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		return os.Stderr
	}
	rt.closers = append(rt.closers, f)
	return f
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
	rt.closers = nil
}
