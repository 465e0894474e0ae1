package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/claims"
)

var claimsRestaurantID string

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Operate on ownership claim codes",
}

// claimsIssueCmd issues a claim code for a restaurant that missed automatic
// issuance. The raw code appears once in the log output and is never stored.
var claimsIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a claim code for a restaurant",
	RunE: func(cmd *cobra.Command, args []string) error {
		if claimsRestaurantID == "" {
			return eris.New("--restaurant is required")
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		ttl := time.Duration(cfg.Claims.TTLDays) * 24 * time.Hour
		issuer := claims.NewIssuer(st, ttl)
		issued, err := issuer.Issue(cmd.Context(), claimsRestaurantID)
		if err != nil {
			return eris.Wrap(err, "issue claim")
		}
		if !issued {
			zap.L().Info("claim already issued for restaurant, skipping",
				zap.String("restaurant_id", claimsRestaurantID))
		}
		return nil
	},
}

var claimsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether a restaurant has a claim code",
	RunE: func(cmd *cobra.Command, args []string) error {
		if claimsRestaurantID == "" {
			return eris.New("--restaurant is required")
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.CountClaims(cmd.Context(), claimsRestaurantID)
		if err != nil {
			return eris.Wrap(err, "count claims")
		}

		zap.L().Info("claim status",
			zap.String("restaurant_id", claimsRestaurantID),
			zap.Int("claims", n),
		)
		return nil
	},
}

func init() {
	claimsCmd.PersistentFlags().StringVar(&claimsRestaurantID, "restaurant", "", "restaurant id")
	claimsCmd.AddCommand(claimsIssueCmd, claimsCheckCmd)
	rootCmd.AddCommand(claimsCmd)
}
