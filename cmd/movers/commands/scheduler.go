package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/topmover/backend/internal/scheduler"
	"github.com/wonny/topmover/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduled jobs",
	Long: `Runs the scheduler daemon or manages its jobs.

Jobs:
  daily_catchup   fill missing recent winners (CATCHUP_SCHEDULE)
  expiry_cleanup  delete winners past expires_at (CLEANUP_SCHEDULE)

Subcommands:
  start       run the scheduler until interrupted
  list        show registered jobs and their next run
  run <job>   run one job now`,
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	RunE:  runSchedulerStart,
}

var schedulerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered jobs",
	RunE:  runSchedulerList,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run a job immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerJob,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd, schedulerListCmd, schedulerRunCmd)
}

// newScheduler registers every job against the app's dependencies
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	router, err := a.pipeline()
	if err != nil {
		return nil, err
	}

	log := a.log.Module("jobs")
	s := scheduler.New(a.log)

	if err := s.AddJob(jobs.NewCatchUpJob(router, a.cfg.Scheduler.CatchUpSchedule, log)); err != nil {
		return nil, err
	}
	if err := s.AddJob(jobs.NewExpiryCleanupJob(a.winnerStore(), a.cfg.Scheduler.CleanupSchedule, log)); err != nil {
		return nil, err
	}
	return s, nil
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a.serveMetrics(ctx)
	s.Start()
	fmt.Fprintln(cmd.OutOrStdout(), "Scheduler running (Ctrl+C to stop)")

	<-ctx.Done()
	s.Stop()
	return nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	// Entries only get a next time once cron is running
	s.Start()
	defer s.Stop()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSCHEDULE\tNEXT RUN (UTC)")
	for _, info := range s.Jobs() {
		next := "-"
		if info.NextRun != nil {
			next = info.NextRun.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Schedule, next)
	}
	return w.Flush()
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := s.RunJob(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
