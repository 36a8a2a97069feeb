package command

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wirehub/cmd/cli/command/client"
	"wirehub/internal/codec"
	"wirehub/internal/config"
)

var tcpServerAddr string

// tcpCmd represents the stream client commands
var tcpCmd = &cobra.Command{
	Use:   "tcp",
	Short: "Stream client sessions",
	Long: `Interactive sessions over a stream connection. Each session reads
one line of input per request and blocks for the server's reply; requests
are never pipelined. The session ends on end-of-input (Ctrl+D) or when the
connection drops.`,
}

// tcpEchoCmd runs an interactive raw echo session
var tcpEchoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Interactive echo session (raw bytes)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		c := client.NewTCPClient(resolveAddr(tcpServerAddr, "WIREHUB_TCP_ADDR", cfg.TCPPort), codec.NewRaw())
		c.SetConnectTimeout(cfg.ConnectTimeout)
		c.SetReadTimeout(cfg.ReadTimeout)
		if err := c.Connect(); err != nil {
			return err
		}
		defer c.Close()

		color.Green("Connected. Type a line to echo it, Ctrl+D to quit.")

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			resp, err := c.Request(codec.NewBytesMessage(append(scanner.Bytes(), '\n')))
			if err != nil {
				color.Red("request failed: %v", err)
				return err
			}
			color.Cyan("%s", strings.TrimRight(string(resp.Bytes), "\n"))
		}
		return scanner.Err()
	},
}

// tcpNormCmd runs an interactive vector norm session over JSON
var tcpNormCmd = &cobra.Command{
	Use:   "norm",
	Short: "Interactive vector norm session (newline-delimited JSON)",
	Long: `Enter a 3d vector as comma separated non-negative integers, e.g. 3,4,0.
The vector is sent as a JSON line and the server replies with the Euclidean
norm as plain text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		c := client.NewTCPClient(resolveAddr(tcpServerAddr, "WIREHUB_TCP_ADDR", cfg.TCPPort), codec.NewDelimitedJSON())
		c.SetConnectTimeout(cfg.ConnectTimeout)
		c.SetReadTimeout(cfg.ReadTimeout)
		if err := c.Connect(); err != nil {
			return err
		}
		defer c.Close()

		color.Green("Connected. Enter a 3d vector as x,y,z — Ctrl+D to quit.")

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			vec, err := parseVector(scanner.Text())
			if err != nil {
				color.Red("%v", err)
				continue
			}

			resp, err := c.Request(codec.NewVectorMessage(vec))
			if err != nil {
				color.Red("request failed: %v", err)
				return err
			}
			color.Cyan("norm = %s", strings.TrimRight(string(resp.Bytes), "\n"))
		}
		return scanner.Err()
	},
}

// parseVector parses "x,y,z" into a Vector3.
func parseVector(line string) (codec.Vector3, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return codec.Vector3{}, fmt.Errorf("expected 3 comma separated integers, got %d value(s)", len(parts))
	}

	var components [3]uint32
	for i, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return codec.Vector3{}, fmt.Errorf("invalid component %q: must be a non-negative 32-bit integer", strings.TrimSpace(part))
		}
		components[i] = uint32(n)
	}

	return codec.Vector3{X: components[0], Y: components[1], Z: components[2]}, nil
}

// resolveAddr picks the server address: explicit flag first, then the env
// override, then the configured port on localhost.
func resolveAddr(flagValue, envKey string, port int) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fmt.Sprintf("localhost:%d", port)
}

func init() {
	tcpCmd.PersistentFlags().StringVar(&tcpServerAddr, "server", "", "server address (host:port)")

	tcpCmd.AddCommand(tcpEchoCmd)
	tcpCmd.AddCommand(tcpNormCmd)
}
