package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/notebuddy/internal"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the study assistant",
	Long: `Chat with the study assistant. Replies are streamed as they arrive.

With a message argument a single reply is printed. Without one an
interactive session starts on stdin. Inside a session:

  /image <path>  attach an image to the next message
  /history       print the conversation so far
  /clear         forget the conversation
  /exit          leave the session

Messages with an image are answered by the vision model.`,
	Example: `  # Ask one question
  notebuddy chat "Explain the difference between TCP and UDP"

  # Ask about a picture of a whiteboard
  notebuddy chat "What does this diagram show?" --image board.png

  # Start an interactive session
  notebuddy chat`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newChatApp(cmd)
		if err != nil {
			return err
		}
		session := app.NewChatSession()

		var image []byte
		if imagePath, _ := cmd.Flags().GetString("image"); imagePath != "" {
			if image, err = os.ReadFile(imagePath); err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			sendAndPrint(cmd, session, out, args[0], image)
			return nil
		}
		return chatLoop(cmd, session, cmd.InOrStdin(), out, image)
	},
}

func newChatApp(cmd *cobra.Command) (*internal.App, error) {
	if err := internal.ValidateAPIKey(config.APIKey); err != nil {
		return nil, err
	}
	if modelFlag, _ := cmd.Flags().GetString("model"); modelFlag != "" {
		config.Model = modelFlag
	}
	return internal.NewApp(config), nil
}

func sendAndPrint(cmd *cobra.Command, session *internal.ChatSession, out io.Writer, text string, image []byte) {
	session.Send(cmd.Context(), text, image, func(delta string) {
		fmt.Fprint(out, delta)
	})
	fmt.Fprintln(out)
}

func chatLoop(cmd *cobra.Command, session *internal.ChatSession, in io.Reader, out io.Writer, image []byte) error {
	interactive := internal.IsTerminal(os.Stdin)
	if interactive {
		fmt.Fprintln(os.Stderr, "Type a message, /help for commands, /exit to quit.")
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(os.Stderr, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/help":
			fmt.Fprintln(out, "/image <path>, /history, /clear, /exit")
		case line == "/clear":
			session.Clear()
			image = nil
		case line == "/history":
			for _, msg := range session.Messages() {
				fmt.Fprintln(out, msg)
			}
		case strings.HasPrefix(line, "/image"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/image"))
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Could not read image: %v\n", err)
				continue
			}
			image = data
			fmt.Fprintf(os.Stderr, "Attached %s to the next message\n", path)
		default:
			sendAndPrint(cmd, session, out, line, image)
			image = nil
		}
	}
}

func init() {
	chatCmd.Flags().StringP("model", "m", "", "Model to use for text replies")
	chatCmd.Flags().String("image", "", "Image file to send with the first message")
	rootCmd.AddCommand(chatCmd)
}
