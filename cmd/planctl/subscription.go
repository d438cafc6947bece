package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
)

var (
	checkoutPriceID    string
	checkoutSuccessURL string
	checkoutCancelURL  string
	portalReturnURL    string
)

type subscriptionView struct {
	Tier         string                `json:"tier"`
	WillCancel   bool                  `json:"willCancel,omitempty"`
	Subscription *billing.Subscription `json:"subscription"`
}

func tierOf(sub *billing.Subscription) string {
	if sub.IsPremium() {
		return "premium"
	}
	return "free"
}

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Show the signed-in user's subscription and tier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, p := a.callContext(cmd)

		sub, err := a.client.FetchSubscription(ctx, p)
		if err != nil {
			return err
		}
		return printJSON(cmd, subscriptionView{
			Tier:         tierOf(sub),
			WillCancel:   sub.WillCancel(),
			Subscription: sub,
		})
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Create a checkout session and print its URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, p := a.callContext(cmd)

		session, err := a.client.CreateCheckoutSession(ctx, p, billing.CheckoutOptions{
			PriceID:    checkoutPriceID,
			SuccessURL: checkoutSuccessURL,
			CancelURL:  checkoutCancelURL,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, session)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <session-id>",
	Short: "Verify the payment of a finished checkout session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, p := a.callContext(cmd)

		result, err := a.client.VerifyStripeSession(ctx, p, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Create a customer billing portal session and print its URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, p := a.callContext(cmd)

		session, err := a.client.CreateCustomerPortalSession(ctx, p, billing.PortalOptions{
			ReturnURL: portalReturnURL,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, session)
	},
}

func init() {
	checkoutCmd.Flags().StringVar(&checkoutPriceID, "price", "", "price id (backend default when empty)")
	checkoutCmd.Flags().StringVar(&checkoutSuccessURL, "success-url", "", "redirect after payment")
	checkoutCmd.Flags().StringVar(&checkoutCancelURL, "cancel-url", "", "redirect after cancellation")
	portalCmd.Flags().StringVar(&portalReturnURL, "return-url", "", "redirect when leaving the portal")
}
