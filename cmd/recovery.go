package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/keyring"
	"github.com/illarion/phantom/internal/recovery"
)

// Recovery manages security-question recovery for vault passwords.
func Recovery() *cli.Command {
	return &cli.Command{
		Name:  "recovery",
		Usage: "Recover a forgotten vault password with security questions",
		Commands: []*cli.Command{
			{
				Name:      "setup",
				Usage:     "Configure recovery questions for a vault",
				ArgsUsage: "<vault-id|folder>",
				Action:    runRecoverySetup,
			},
			{
				Name:      "recover",
				Usage:     "Answer the questions and recover the password",
				ArgsUsage: "<vault-id|folder>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "keyring",
						Usage: "Store the recovered password in the OS keyring instead of printing it",
					},
				},
				Action: runRecoveryRecover,
			},
		},
	}
}

func runRecoverySetup(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom recovery setup <vault-id|folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	eng := app.Engine()
	record, err := eng.Resolve(ref)
	if err != nil {
		return friendlyError(err)
	}

	password := PasswordFromEnv()
	if password == nil {
		password, err = ReadPassword("Enter vault password: ")
		if err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(password)

	if err := eng.VerifyPassword(record, password); err != nil {
		return friendlyError(err)
	}

	questions, answers, err := promptQuestions()
	if err != nil {
		return err
	}

	rec := recovery.New(app.Store)
	if err := rec.Setup(record.VaultID, questions, answers, password); err != nil {
		return err
	}
	fmt.Printf("Recovery configured with %d question(s)\n", len(questions))
	return nil
}

// promptQuestions reads question/answer pairs until an empty question.
// Answers are read without echo.
func promptQuestions() ([]string, []string, error) {
	fmt.Println("Enter recovery questions. Finish with an empty question.")

	reader := bufio.NewReader(os.Stdin)
	var questions, answers []string
	for i := 1; ; i++ {
		fmt.Printf("Question %d: ", i)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, nil, err
		}
		question := strings.TrimSpace(line)
		if question == "" {
			break
		}

		answer, rerr := ReadPassword("Answer: ")
		if rerr != nil {
			return nil, nil, rerr
		}
		questions = append(questions, question)
		answers = append(answers, string(answer))
		crypto.ClearBytes(answer)

		if errors.Is(err, io.EOF) {
			break
		}
	}
	return questions, answers, nil
}

func runRecoveryRecover(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("usage: phantom recovery recover <vault-id|folder>")
	}

	app, err := OpenApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	record, err := app.Engine().Resolve(ref)
	if err != nil {
		return friendlyError(err)
	}

	rec := recovery.New(app.Store)
	questions, err := rec.Questions(record.VaultID)
	if err != nil {
		return err
	}

	answers := make([]string, len(questions))
	for i, q := range questions {
		fmt.Println(q)
		answer, err := ReadPassword("Answer: ")
		if err != nil {
			return err
		}
		answers[i] = string(answer)
		crypto.ClearBytes(answer)
	}

	password, err := rec.Attempt(record.VaultID, answers)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	if cmd.Bool("keyring") {
		if err := keyring.SavePassword(record.VaultID, string(password)); err != nil {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}
		fmt.Println("Recovered password saved to keyring")
		return nil
	}

	fmt.Printf("Recovered password: %s\n", string(password))
	return nil
}
