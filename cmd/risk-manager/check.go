package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Overmuse/risk-manager/internal/broker"
	"github.com/Overmuse/risk-manager/internal/portfolio"
	"github.com/Overmuse/risk-manager/internal/prices"
	"github.com/Overmuse/risk-manager/internal/risk"
)

func checkCmd(configPath *string) *cobra.Command {
	var (
		ticker     string
		qty        int64
		limitPrice string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a one-shot risk check against the live account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticker == "" {
				return fmt.Errorf("--ticker is required")
			}
			if qty == 0 {
				return fmt.Errorf("--qty must be nonzero")
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			client := broker.NewClient(broker.Config{
				BaseURL:   cfg.Broker.BaseURL,
				KeyID:     cfg.Broker.KeyID,
				SecretKey: cfg.Broker.SecretKey,
				Timeout:   cfg.Broker.Timeout.Std(),
			})
			acct, err := client.GetAccount(cmd.Context())
			if err != nil {
				return err
			}
			brokerPositions, err := client.GetPositions(cmd.Context())
			if err != nil {
				return err
			}
			positions := make([]portfolio.Position, 0, len(brokerPositions))
			for _, pos := range brokerPositions {
				positions = append(positions, portfolio.Position{
					Ticker: pos.Symbol,
					Shares: pos.Qty,
					Price:  pos.AvgEntryPrice,
				})
			}
			book := portfolio.NewFromAccount(portfolio.Account{
				Cash:                  acct.Cash,
				PatternDayTrader:      acct.PatternDayTrader,
				LastEquity:            acct.LastEquity,
				LastMaintenanceMargin: acct.LastMaintenanceMargin,
			}, positions)

			priceSource := prices.NewRedisSource(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			defer priceSource.Close()

			intent := risk.NewIntent(ticker, qty)
			if limitPrice != "" {
				price, err := decimal.NewFromString(limitPrice)
				if err != nil {
					return fmt.Errorf("parsing limit price: %w", err)
				}
				intent = intent.WithLimitPrice(price)
			}

			decision, err := risk.NewEngine(book, priceSource).Check(cmd.Context(), intent)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(decision, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker to trade")
	cmd.Flags().Int64Var(&qty, "qty", 0, "signed quantity: positive buys, negative sells")
	cmd.Flags().StringVar(&limitPrice, "limit-price", "", "limit price; omit for a market order")
	return cmd
}
