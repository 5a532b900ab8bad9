package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/content"
	"github.com/spigell/interview-brain/internal/interview"
)

const (
	PromptAnswer     = "Answer"
	PromptTranscript = "Show transcript"
	PromptCoverage   = "Show coverage"
	PromptFinish     = "Finish"
)

var errExit = errors.New("exit requested")

var actionPrompt = promptui.Select{
	Label: "Next step?",
	Items: []string{PromptAnswer, PromptCoverage, PromptTranscript, PromptFinish},
}

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interactive interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		runInterview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringP("candidate", "c", "", "candidate name (asked interactively when empty)")
	interviewCmd.Flags().StringP("role", "r", "", "role (asked interactively when empty)")
	interviewCmd.Flags().IntP("minutes", "m", 60, "planned interview length in minutes")
}

func runInterview(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, _, comps := bootstrap(ctx)

	role, err := chooseRole(cmd, comps.content)
	if err != nil {
		logger.Fatal("choosing a role", zap.Error(err))
	}

	candidate, _ := cmd.Flags().GetString("candidate")
	if strings.TrimSpace(candidate) == "" {
		candidate, err = (&promptui.Prompt{Label: "Candidate name", Validate: notBlank}).Run()
		if err != nil {
			logger.Fatal("reading candidate name", zap.Error(err))
		}
	}
	minutes, _ := cmd.Flags().GetInt("minutes")

	start, err := comps.orchestrator.Start(ctx, candidate, role, minutes)
	if err != nil {
		if errors.Is(err, interview.ErrNotFound) {
			logger.Fatal("no rubric or resume for this interview",
				zap.String("candidate", candidate),
				zap.String("role", role),
				zap.Strings("known roles", comps.content.Roles()),
			)
		}
		logger.Fatal("starting the interview", zap.Error(err))
	}

	fmt.Printf("\n%s\n\n", start.Intro)
	printOutcome(start.Outcome)

	for {
		_, action, err := actionPrompt.Run()
		if err != nil {
			logger.Info("exiting", zap.Error(err))
			return
		}

		if err := handleAction(ctx, action, comps.orchestrator, start.SessionID, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, o *interview.Orchestrator, sessionID string, logger *zap.Logger) error {
	switch action {
	case PromptAnswer:
		answer, err := (&promptui.Prompt{Label: "Your answer", Validate: notBlank}).Run()
		if err != nil {
			return err
		}
		res, err := o.Next(ctx, sessionID, answer)
		if err != nil {
			return err
		}
		printOutcome(res.Outcome)
		return nil
	case PromptCoverage:
		sess, err := o.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		for _, dim := range interview.Dimensions {
			fmt.Printf("  %-24s %d\n", dim, sess.Coverage[dim])
		}
		return nil
	case PromptTranscript:
		sess, err := o.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		for _, turn := range sess.Turns {
			fmt.Printf("[%s] %s\n", turn.Actor, turn.Text)
			if len(turn.Citations) > 0 {
				fmt.Printf("       cites: %s\n", strings.Join(turn.Citations, ", "))
			}
		}
		return nil
	case PromptFinish:
		logger.Info("exiting", zap.String("reason", "interview finished"), zap.String("session_id", sessionID))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func chooseRole(cmd *cobra.Command, store *content.Store) (string, error) {
	role, _ := cmd.Flags().GetString("role")
	if strings.TrimSpace(role) != "" {
		return role, nil
	}

	roles := store.Roles()
	if len(roles) == 1 {
		return roles[0], nil
	}

	_, role, err := (&promptui.Select{Label: "Choose a role and press ENTER", Items: roles}).Run()
	return role, err
}

func printOutcome(o interview.Outcome) {
	fmt.Printf("Q [%s/%s]: %s\n", o.Question.Dimension, o.Question.Difficulty, o.Question.Question)
	for _, f := range o.Question.Followups {
		fmt.Printf("   follow-up: %s\n", f)
	}
	if o.Source == interview.SourceFallback {
		fmt.Printf("   (fallback: %s)\n", o.Reason)
	}
}

func notBlank(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("must not be empty")
	}
	return nil
}
