package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"geoagent/internal/logger"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Run a conversation turn from the command line",
	Long: `Sends a message to the agent and prints its answer. When the agent asks
a clarifying question, the next line read from stdin continues the
conversation, until a final answer is produced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, agentInstance, _, err := initRuntime()
		if err != nil {
			return err
		}
		defer logger.CloseLogFiles()

		ctx := context.Background()
		result, err := agentInstance.StartTurn(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(os.Stdin)
		for result.RequiresFollowUp {
			fmt.Println(result.Answer)
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}

			result, err = agentInstance.ContinueTurn(ctx, result.Conversation, scanner.Text())
			if err != nil {
				return err
			}
		}

		fmt.Println(result.Answer)
		if len(result.GeneratedFiles) > 0 {
			fmt.Printf("Generated files: %s\n", strings.Join(result.GeneratedFiles, ", "))
		}
		return nil
	},
}
