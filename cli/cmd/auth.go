package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/telhawk-systems/fwlens/cli/internal/client"
	"github.com/telhawk-systems/fwlens/cli/internal/config"
	"github.com/telhawk-systems/fwlens/cli/pkg/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to an fwlens API server",
	Long:  "Authenticate with the fwlens API and save the access token in a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		apiURL, _ := cmd.Flags().GetString("api-url")

		profile, _ := cmd.Flags().GetString("profile")
		if profile == "" {
			profile = "default"
		}
		if apiURL == "" {
			apiURL = cfg.GetAPIURL(profile)
		}

		resp, err := client.New(apiURL).Login(cmd.Context(), username, password)
		if err != nil {
			if errors.Is(err, client.ErrRateLimited) {
				return fmt.Errorf("too many failed login attempts, try again later")
			}
			return fmt.Errorf("login failed: %w", err)
		}

		p := &config.Profile{
			APIURL:      apiURL,
			Username:    username,
			AccessToken: resp.AccessToken,
		}
		if resp.ExpiresIn > 0 {
			p.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
		}
		if err := cfg.SaveProfile(profile, p); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		output.Success("Successfully logged in as %s", username)
		output.Info("Profile '%s' saved to %s", profile, cfg.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _, err := activeProfile(cmd)
		if err != nil {
			return err
		}
		if err := cfg.RemoveProfile(name); err != nil {
			return err
		}

		output.Success("Successfully logged out from profile '%s'", name)
		return nil
	},
}

// WhoamiInfo describes the stored session.
type WhoamiInfo struct {
	Profile   string    `json:"profile"`
	APIURL    string    `json:"api_url"`
	Username  string    `json:"username"`
	Issuer    string    `json:"issuer,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Expired   bool      `json:"expired"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display the stored session",
	Long:  "Show the user and expiry of the token stored in the active profile. The token is not verified.",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, p, err := activeProfile(cmd)
		if err != nil {
			return err
		}

		info, err := describeToken(name, p, time.Now())
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("output")
		if handled, err := output.Structured(format, info); handled {
			return err
		}

		output.Info("Profile:  %s", info.Profile)
		output.Info("API URL:  %s", info.APIURL)
		output.Info("User:     %s", info.Username)
		if !info.ExpiresAt.IsZero() {
			output.Info("Expires:  %s", info.ExpiresAt.Local().Format(time.RFC1123))
		}
		if info.Expired {
			output.Warn("Token expired, run 'fwlens login'")
		}
		return nil
	},
}

func describeToken(name string, p *config.Profile, now time.Time) (*WhoamiInfo, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(p.AccessToken, claims); err != nil {
		return nil, fmt.Errorf("stored token is malformed: %w", err)
	}

	info := &WhoamiInfo{
		Profile:  name,
		APIURL:   p.APIURL,
		Username: claims.Subject,
		Issuer:   claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time.UTC()
		info.Expired = now.After(info.ExpiresAt)
	}
	return info, nil
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for auth.users in the server config",
	Example: `  fwlens hash-password -p 'correct horse'
  echo 'correct horse' | fwlens hash-password`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			data, err := io.ReadAll(io.LimitReader(os.Stdin, 1024))
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			password = strings.TrimRight(string(data), "\r\n")
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(output.Stdout, string(hash))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(hashPasswordCmd)

	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password")
	loginCmd.Flags().String("api-url", "", "API URL (default from profile or FWLENS_API_URL)")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")

	hashPasswordCmd.Flags().StringP("password", "p", "", "Password (read from stdin when omitted)")
}
