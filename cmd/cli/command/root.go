package command

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the wirehub client CLI
var rootCmd = &cobra.Command{
	Use:   "wirehub",
	Short: "Interactive client for the wirehub echo and norm services",
	Long: `wirehub is an interactive client for the wirehub request/response
servers. It reads one line of input per request, sends it over the chosen
transport, and prints the server's reply.

Available sessions:
- tcp echo: raw byte echo over a stream connection
- tcp norm: newline-delimited JSON vectors, plain text norm replies
- udp echo: raw byte echo, one datagram per request`,
}

// Execute runs the CLI. Invalid arguments exit with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(tcpCmd)
	rootCmd.AddCommand(udpCmd)
}
