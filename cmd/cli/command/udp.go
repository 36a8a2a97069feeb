package command

import (
	"bufio"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wirehub/cmd/cli/command/client"
	"wirehub/internal/codec"
	"wirehub/internal/config"
)

var udpServerAddr string

// udpCmd represents the datagram client commands
var udpCmd = &cobra.Command{
	Use:   "udp",
	Short: "Datagram client sessions",
}

// udpEchoCmd runs an interactive echo session over datagrams
var udpEchoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Interactive echo session (one datagram per line)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		c := client.NewUDPClient(resolveAddr(udpServerAddr, "WIREHUB_UDP_ADDR", cfg.UDPPort), codec.NewRaw())
		c.SetReadTimeout(cfg.ReadTimeout)
		if err := c.Connect(); err != nil {
			return err
		}
		defer c.Close()

		color.Green("Ready. Each line is sent as one datagram, Ctrl+D to quit.")

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			// the newline rides along so an empty input line still makes
			// a non-empty datagram
			resp, err := c.Request(codec.NewBytesMessage(append(scanner.Bytes(), '\n')))
			if err != nil {
				// datagrams are best effort: report the miss and keep going
				color.Red("no reply: %v", err)
				continue
			}
			color.Cyan("%s", strings.TrimRight(string(resp.Bytes), "\n"))
		}
		return scanner.Err()
	},
}

func init() {
	udpCmd.PersistentFlags().StringVar(&udpServerAddr, "server", "", "server address (host:port)")

	udpCmd.AddCommand(udpEchoCmd)
}
