package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"terminal_bridge/internal/broker"
	"terminal_bridge/internal/config"
)

type RunArgs struct {
	Ref      string
	Password string
	Secret   string
}

type RunResult struct {
	PasswordEnc string
	Nonce       string
}

var runCmd = &cobra.Command{
	Use:   "encrypt-credential --ref shared",
	Short: "Encrypt a terminal password for the accounts file",
	Long: "Encrypts a password with ENCRYPTION_SECRET for one credential reference.\n" +
		"The password is read from --password or, when omitted, from the first line of stdin.",
	Run: func(cmd *cobra.Command, args []string) {
		ref, err := cmd.Flags().GetString("ref")
		if err != nil {
			log.Fatalf("error getting ref: %v", err)
		}

		password, err := cmd.Flags().GetString("password")
		if err != nil {
			log.Fatalf("error getting password: %v", err)
		}
		if password == "" {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				log.Fatalf("error reading password from stdin: %v", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		result, err := Run(RunArgs{
			Ref:      ref,
			Password: password,
			Secret:   os.Getenv("ENCRYPTION_SECRET"),
		})
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		fmt.Printf("credentials:\n  %s:\n    password_enc: %s\n    nonce: %s\n", ref, result.PasswordEnc, result.Nonce)
	},
}

func Run(args RunArgs) (RunResult, error) {
	if args.Secret == "" {
		return RunResult{}, fmt.Errorf("missing ENCRYPTION_SECRET environment variable")
	}
	if args.Ref == "" {
		args.Ref = config.SharedCredentialRef
	}
	if args.Password == "" {
		return RunResult{}, fmt.Errorf("empty password")
	}

	enc, err := broker.NewEncryptor(args.Secret)
	if err != nil {
		return RunResult{}, err
	}

	ciphertext, nonce, err := enc.EncryptString(args.Password, args.Ref)
	if err != nil {
		return RunResult{}, fmt.Errorf("encrypting password: %w", err)
	}

	return RunResult{PasswordEnc: ciphertext, Nonce: nonce}, nil
}

func main() {
	_ = godotenv.Load()

	runCmd.PersistentFlags().String("ref", config.SharedCredentialRef, "The credential reference the password belongs to.")
	runCmd.PersistentFlags().String("password", "", "The password to encrypt. Read from stdin when empty.")

	if err := runCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
