package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/breakbot/internal/breaks"
	"github.com/goodtune/breakbot/internal/clock"
	"github.com/goodtune/breakbot/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	checkActive   int
	checkTaken    int
	checkDuration time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check break rules interactively",
	Long:  `Check what BreakBot would decide for a break request or a return, using the configured rules.`,
}

var checkStartCmd = &cobra.Command{
	Use:   "start [flags] TYPE",
	Short: "Check whether a break would be granted",
	Example: `  breakbot -c breakbot.yaml check start toilet --active 1 --taken 4
  breakbot check start outside --active 4`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckStart,
}

var checkReturnCmd = &cobra.Command{
	Use:   "return [flags] TYPE",
	Short: "Check whether a return would be on time",
	Example: `  breakbot check return toilet --after 14m30s
  breakbot check return drinking --after 16m`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckReturn,
}

func init() {
	checkStartCmd.Flags().IntVar(&checkActive, "active", 0, "Number of people already on this break type")
	checkStartCmd.Flags().IntVar(&checkTaken, "taken", 0, "Breaks of this type the user already took today")

	checkReturnCmd.Flags().DurationVar(&checkDuration, "after", 0, "Time spent on the break (required)")
	_ = checkReturnCmd.MarkFlagRequired("after")

	checkCmd.AddCommand(checkStartCmd)
	checkCmd.AddCommand(checkReturnCmd)
	rootCmd.AddCommand(checkCmd)
}

// checkUser is the user whose request is simulated
const checkUser int64 = 1

// newCheckService builds a break service on a stopped clock with no notifications
func newCheckService(typeName string) (*breaks.Service, *clock.Fake, breaks.BreakType, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}
	rules, err := cfg.BreakRules()
	if err != nil {
		return nil, nil, "", err
	}

	t := breaks.ParseBreakType(typeName)
	if !t.Valid() {
		return nil, nil, "", fmt.Errorf("%q: %w", typeName, breaks.ErrUnknownBreakType)
	}

	fake := clock.NewFake(time.Now())
	service, err := breaks.NewService(rules, fake, nil, zerolog.Nop())
	if err != nil {
		return nil, nil, "", err
	}
	return service, fake, t, nil
}

func runCheckStart(cmd *cobra.Command, args []string) error {
	service, _, t, err := newCheckService(args[0])
	if err != nil {
		return err
	}
	defer service.Close()

	limits, _ := service.Limits(t)
	if checkActive < 0 || checkTaken < 0 {
		return fmt.Errorf("--active and --taken must not be negative")
	}
	if checkActive > limits.Concurrency {
		return fmt.Errorf("--active %d exceeds the %s limit of %d", checkActive, t, limits.Concurrency)
	}

	startErr, err := simulateStart(service, t, limits, checkActive, checkTaken)
	if err != nil {
		return err
	}
	printStartResult(t, limits, startErr)
	return nil
}

// simulateStart replays the user's earlier breaks, fills the active slots
// with other people and returns the admission result of one more request.
func simulateStart(service *breaks.Service, t breaks.BreakType, limits breaks.Limits, active, taken int) (admission error, err error) {
	// Breaks the user already finished today
	for i := 0; i < taken && i < limits.Daily; i++ {
		if _, err := service.StartBreak(checkUser, "you", t); err != nil {
			return nil, fmt.Errorf("replay earlier breaks: %w", err)
		}
		if _, err := service.EndBreak(checkUser); err != nil {
			return nil, fmt.Errorf("replay earlier breaks: %w", err)
		}
	}
	// Other people currently on break
	for i := 0; i < active; i++ {
		if _, err := service.StartBreak(checkUser+1+int64(i), fmt.Sprintf("user %d", i), t); err != nil {
			return nil, fmt.Errorf("fill active slots: %w", err)
		}
	}

	_, startErr := service.StartBreak(checkUser, "you", t)
	return startErr, nil
}

func runCheckReturn(cmd *cobra.Command, args []string) error {
	service, fake, t, err := newCheckService(args[0])
	if err != nil {
		return err
	}
	defer service.Close()

	if checkDuration < 0 {
		return fmt.Errorf("--after must not be negative")
	}

	started := fake.Now()
	if _, err := service.StartBreak(checkUser, "you", t); err != nil {
		return err
	}

	// Firing due timers lets a long break expire on its own
	fake.Advance(checkDuration)

	outcome, err := service.EndBreak(checkUser)
	if errors.Is(err, breaks.ErrNotOnBreak) {
		// The timer ended the break before the return
		printReturnResult(t, service.AllowedMinutes(), fake.Now().Sub(started), nil)
		return nil
	}
	if err != nil {
		return err
	}

	printReturnResult(t, service.AllowedMinutes(), checkDuration, &outcome)
	return nil
}

// printStartResult prints the admission check result with colors
func printStartResult(t breaks.BreakType, limits breaks.Limits, err error) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("BREAK REQUEST CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Break Type:  %s\n", t.Title())
	fmt.Printf("On Break:    %d/%d\n", checkActive, limits.Concurrency)
	fmt.Printf("Taken Today: %d/%d\n", checkTaken, limits.Daily)
	fmt.Println()

	cyan.Print("Decision:    ")
	switch {
	case err == nil:
		green.Println("GRANTED")
		fmt.Println("             → Break timer starts now")
	case errors.Is(err, breaks.ErrDailyLimitExceeded):
		red.Println("REJECTED")
		fmt.Println("             → Daily limit reached")
	case errors.Is(err, breaks.ErrCapacityExceeded):
		red.Println("REJECTED")
		fmt.Println("             → All slots are taken")
	default:
		red.Println("REJECTED")
		fmt.Printf("             → %v\n", err)
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}

// printReturnResult prints the return check result. A nil outcome means the
// timer ended the break.
func printReturnResult(t breaks.BreakType, allowed int, spent time.Duration, outcome *breaks.Outcome) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("BREAK RETURN CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Break Type:  %s\n", t.Title())
	fmt.Printf("Allowed:     %d minutes\n", allowed)
	fmt.Printf("Time Spent:  %s\n", spent)
	fmt.Println()

	cyan.Print("Decision:    ")
	switch {
	case outcome == nil:
		red.Println("EXPIRED")
		fmt.Println("             → Timer ends the break at the allowed duration")
		fmt.Println("             → User is asked for a reason, supervisor rules on a fine")
	case outcome.OnTime:
		green.Println("ON TIME")
		fmt.Printf("             → Break lasted %d minutes\n", outcome.DurationMinutes)
	default:
		red.Println("LATE")
		fmt.Printf("             → Break lasted %d minutes\n", outcome.DurationMinutes)
		fmt.Println("             → User is asked for a reason, supervisor rules on a fine")
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}
