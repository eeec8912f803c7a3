package cli

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/pkg/platform"
	"github.com/channelkit/channelkit/pkg/session"
)

// sessionTTL is the duration for CLI sessions (30 days).
const sessionTTL = 30 * 24 * time.Hour

// loginCommand creates the login command.
func (c *CLI) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the platform using device flow",
		Long: `Start the platform device authorization flow.

You'll be given a code to enter in your browser. Once authorized, your
session is saved under ~/.config/channelkit/sessions/ for future commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if existing, _ := currentSession(ctx); existing != nil {
				printInfo("Already logged in as %s", existing.User.Email)
				printDetail("Run 'channelkit logout' first to re-authenticate")
				return nil
			}

			_, err := c.runLogin(ctx)
			return err
		},
	}
}

// logoutCommand creates the logout command.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored platform session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewCLIStore()
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			if err := store.DeleteSession(cmd.Context()); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

// whoamiCommand creates the whoami command.
func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated platform user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := currentSession(ctx)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			spinner := newSpinnerWithContext(ctx, "Verifying session...")
			spinner.Start()

			client := platform.NewClient(cfg.Platform.URL, sess.AccessToken, nil)
			user, err := client.FetchUser(ctx)
			if err != nil {
				spinner.StopWithError("Session invalid")
				return fmt.Errorf("verify session: %w", err)
			}
			spinner.Stop()

			printSuccess("Platform Session")
			printKeyValue("Email", user.Email)
			if user.Name != "" {
				printKeyValue("Name", user.Name)
			}
			if user.Workspace != "" {
				printKeyValue("Workspace", user.Workspace)
			}
			printKeyValue("Logged in", sess.CreatedAt.Format("Jan 2, 2006"))
			printKeyValue("Expires", sess.ExpiresAt.Format("Jan 2, 2006"))

			return nil
		},
	}
}

// runLogin walks the device authorization flow and stores the session.
func (c *CLI) runLogin(ctx context.Context) (*session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := platform.NewClient(cfg.Platform.URL, "", nil)

	loginCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	deviceResp, err := client.RequestDeviceCode(loginCtx)
	if err != nil {
		return nil, fmt.Errorf("request device code: %w", err)
	}

	printNewline()
	fmt.Println(StyleTitle.Render("Platform Device Authorization"))
	printNewline()
	printKeyValue("Code", StyleNumber.Render(deviceResp.UserCode))
	printKeyValue("URL", StyleLink.Render(deviceResp.VerificationURI))
	printNewline()

	if err := openBrowser(deviceResp.VerificationURI); err != nil {
		printDetail("Copy the URL above and paste it in your browser")
	} else {
		printDetail("Opening browser...")
	}
	printInline("Waiting for authorization...")

	token, err := client.PollForToken(loginCtx, deviceResp.DeviceCode, deviceResp.Interval)
	if err != nil {
		fmt.Println()
		return nil, fmt.Errorf("authorization failed: %w", err)
	}

	authed := platform.NewClient(cfg.Platform.URL, token.AccessToken, nil)
	user, err := authed.FetchUser(loginCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	store, err := session.NewCLIStore()
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	sess, err := session.New(token.AccessToken, user, sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	fmt.Println()
	printSuccess("Logged in as %s", user.Email)

	return sess, nil
}

func openBrowser(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "linux":
		cmd = exec.Command("xdg-open", rawURL)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
