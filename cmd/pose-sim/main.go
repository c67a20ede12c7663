// Package main provides the pose-sim CLI: a synthetic landmark generator and
// load tool for the analysis service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/domain/pose"
	"github.com/okian/kinetica/internal/posesim"
	"github.com/okian/kinetica/internal/session"
	"github.com/okian/kinetica/internal/simulator"
	"github.com/okian/kinetica/pkg/logger"
)

const (
	defaultURL      = "http://localhost:9080"
	defaultSessions = 8
	defaultTimeout  = 10 * time.Second
	defaultWait     = 30 * time.Second
	defaultExercise = "squat"
	defaultTopN     = 10
)

type trajectoryFlags struct {
	reps         int
	framesPerRep int
	holdFrames   int
	fps          float64
	startKnee    float64
	bottomKnee   float64
	fault        string
	severity     float64
	jitter       float64
	seed         uint64
}

func (f *trajectoryFlags) register(cmd *cobra.Command) {
	d := simulator.DefaultTrajectory()
	cmd.Flags().IntVar(&f.reps, "reps", d.Reps, "repetitions per session")
	cmd.Flags().IntVar(&f.framesPerRep, "frames-per-rep", d.FramesPerRep, "moving frames per repetition")
	cmd.Flags().IntVar(&f.holdFrames, "hold-frames", d.HoldFrames, "standing frames between repetitions")
	cmd.Flags().Float64Var(&f.fps, "fps", d.FPS, "frames per second")
	cmd.Flags().Float64Var(&f.startKnee, "start-knee", d.StartKnee, "standing knee angle in degrees")
	cmd.Flags().Float64Var(&f.bottomKnee, "bottom-knee", d.BottomKnee, "deepest knee angle in degrees")
	cmd.Flags().StringVar(&f.fault, "fault", string(d.Fault), "injected fault (none, knee_valgus, trunk_lean, hip_drop, shoulder_hike, weight_shift, forward_head)")
	cmd.Flags().Float64Var(&f.severity, "severity", d.Severity, "fault severity (0-1)")
	cmd.Flags().Float64Var(&f.jitter, "jitter", 0, "landmark noise in normalized units")
	cmd.Flags().Uint64Var(&f.seed, "seed", d.Seed, "random seed")
}

func (f *trajectoryFlags) trajectory() (simulator.Trajectory, error) {
	fault, err := simulator.ParseFault(f.fault)
	if err != nil {
		return simulator.Trajectory{}, err
	}
	t := simulator.Trajectory{
		Reps:         f.reps,
		FramesPerRep: f.framesPerRep,
		HoldFrames:   f.holdFrames,
		FPS:          f.fps,
		StartKnee:    f.startKnee,
		BottomKnee:   f.bottomKnee,
		Fault:        fault,
		Severity:     f.severity,
		Jitter:       f.jitter,
		Seed:         f.seed,
		Start:        time.Now().UTC().Truncate(time.Millisecond),
	}
	return t, t.Validate()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string
	rootCmd := &cobra.Command{
		Use:           "pose-sim",
		Short:         "Synthetic pose landmarks for the movement analysis service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			format, err := logger.ParseFormat(logFormat)
			if err != nil {
				return err
			}
			// Reports go to stdout; logs stay on stderr.
			if err := logger.InitWith(cmd.ErrOrStderr(), format); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newOfflineCmd())
	rootCmd.AddCommand(newReplayCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	var (
		tf  trajectoryFlags
		cfg posesim.Config
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stream simulated sessions to a running service and verify the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := tf.trajectory()
			if err != nil {
				return err
			}
			cfg.Trajectory = t
			cfg.Logger = logger.Get()
			stats, err := posesim.Run(cmd.Context(), cfg)
			if stats != nil {
				if werr := writeJSON(cmd.OutOrStdout(), stats); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	tf.register(cmd)
	cmd.Flags().StringVar(&cfg.BaseURL, "url", defaultURL, "base URL of the service")
	cmd.Flags().IntVar(&cfg.Sessions, "sessions", defaultSessions, "number of concurrent sessions")
	cmd.Flags().IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "number of submitting workers")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	cmd.Flags().DurationVar(&cfg.Wait, "wait", defaultWait, "how long to wait for reps to be scored")
	cmd.Flags().StringVar(&cfg.Exercise, "exercise", defaultExercise, "exercise name")
	cmd.Flags().IntVar(&cfg.TopN, "top", defaultTopN, "leaderboard entries to fetch")
	cmd.Flags().IntVar(&cfg.CalibrationFrames, "calibrate", 0, "standing frames sent for calibration (0 skips calibration)")
	cmd.Flags().BoolVar(&cfg.MixFaults, "mix-faults", false, "cycle sessions through every fault")
	cmd.Flags().BoolVar(&cfg.Cleanup, "cleanup", false, "delete sessions after verification")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		tf  trajectoryFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a simulated frame sequence as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := tf.trajectory()
			if err != nil {
				return err
			}
			frames, err := t.Generate()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return simulator.WriteFrames(cmd.OutOrStdout(), frames)
			}
			if err := simulator.SaveFrames(out, frames); err != nil {
				return err
			}
			logger.Get().Info(cmd.Context(), "frames saved", logger.String("file", out), logger.Int("frames", len(frames)))
			return nil
		},
	}
	tf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

type replayFlags struct {
	exercise  string
	calibrate bool
	smoothing int
}

func (f *replayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.exercise, "exercise", defaultExercise, "exercise name")
	cmd.Flags().BoolVar(&f.calibrate, "calibrate", false, "calibrate on the first frames instead of using the default profile")
	cmd.Flags().IntVar(&f.smoothing, "smoothing", pose.DefaultSmoothingWindow, "pose smoothing window in frames")
}

func (f *replayFlags) options() []session.Option {
	return []session.Option{session.WithPoseOptions(pose.WithSmoothingWindow(f.smoothing))}
}

func newOfflineCmd() *cobra.Command {
	var (
		tf trajectoryFlags
		rf replayFlags
	)
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Generate a sequence and analyze it in-process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := tf.trajectory()
			if err != nil {
				return err
			}
			frames, err := t.Generate()
			if err != nil {
				return err
			}
			return replay(cmd, frames, rf)
		},
	}
	tf.register(cmd)
	rf.register(cmd)
	return cmd
}

func newReplayCmd() *cobra.Command {
	var (
		rf   replayFlags
		file string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Analyze a recorded JSON-lines frame file in-process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			frames, err := simulator.LoadFrames(file)
			if err != nil {
				return err
			}
			return replay(cmd, frames, rf)
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON-lines frame file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func replay(cmd *cobra.Command, frames []model.Frame, rf replayFlags) error {
	report, err := posesim.Replay(cmd.Context(), frames, rf.exercise, !rf.calibrate, rf.options()...)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), report)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
