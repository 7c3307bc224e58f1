package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/export"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/plan"
)

var (
	linkProtocol string
	linkDFD      string

	teamMembers    []string
	teamIdentified bool

	addTitle    string
	addCategory string
	addValue    string
	addStart    string
	addEnd      string
	addArea     string
	addProtocol string
	addFromXLSX string
)

var planLinkCmd = &cobra.Command{
	Use:   "link <item-id>",
	Short: "Link a plan item to an internal case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		year := yearOrDefault(planYear)

		env, err := initPlan(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Service.LinkCase(ctx, year, args[0], plan.LinkRequest{
			Protocol:  linkProtocol,
			DFDNumber: linkDFD,
		}); err != nil {
			return eris.Wrap(err, "plan link")
		}
		zap.L().Info("item linked", zap.String("year", year), zap.String("id", args[0]), zap.String("protocol", linkProtocol))
		return nil
	},
}

var planTeamCmd = &cobra.Command{
	Use:   "team <item-id>",
	Short: "Set the planning team of a plan item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		year := yearOrDefault(planYear)

		env, err := initPlan(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Service.SetTeam(ctx, year, args[0], teamMembers, teamIdentified); err != nil {
			return eris.Wrap(err, "plan team")
		}
		zap.L().Info("team updated", zap.String("year", year), zap.String("id", args[0]), zap.Int("members", len(teamMembers)))
		return nil
	},
}

var planAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add manual items to a year's plan",
	Long:  "Adds one manual item from flags, or every row of a spreadsheet with --from-xlsx.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		year := yearOrDefault(planYear)

		inputs, err := manualInputs()
		if err != nil {
			return err
		}

		env, err := initPlan(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		for _, in := range inputs {
			item, err := env.Service.AddManualItem(ctx, year, in)
			if err != nil {
				return eris.Wrapf(err, "plan add %q", in.Title)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.ID, item.Title)
		}
		return nil
	},
}

// manualInputs builds the items to add from the spreadsheet flag or the item flags.
func manualInputs() ([]plan.ManualItemInput, error) {
	if addFromXLSX != "" {
		rows, err := export.ReadManualItems(addFromXLSX)
		if err != nil {
			return nil, err
		}
		out := make([]plan.ManualItemInput, len(rows))
		for i, r := range rows {
			out[i] = plan.ManualItemInput{
				Title:     r.Title,
				Category:  r.Category,
				Value:     r.Value,
				StartDate: r.StartDate,
				EndDate:   r.EndDate,
				Area:      r.Area,
				Protocol:  r.Protocol,
			}
		}
		return out, nil
	}

	if addTitle == "" {
		return nil, eris.New("--title or --from-xlsx is required")
	}
	value := decimal.Zero
	if addValue != "" {
		v, err := decimal.NewFromString(addValue)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid --value %q", addValue)
		}
		value = v
	}
	return []plan.ManualItemInput{{
		Title:     addTitle,
		Category:  addCategory,
		Value:     value,
		StartDate: addStart,
		EndDate:   addEnd,
		Area:      addArea,
		Protocol:  addProtocol,
	}}, nil
}

func init() {
	planLinkCmd.Flags().StringVar(&linkProtocol, "protocol", "", "case protocol number")
	planLinkCmd.Flags().StringVar(&linkDFD, "dfd", "", "demand formalization document number")
	_ = planLinkCmd.MarkFlagRequired("protocol")

	planTeamCmd.Flags().StringSliceVar(&teamMembers, "member", nil, "team member (repeatable)")
	planTeamCmd.Flags().BoolVar(&teamIdentified, "identified", false, "mark the team as identified")

	planAddCmd.Flags().StringVar(&addTitle, "title", "", "item description")
	planAddCmd.Flags().StringVar(&addCategory, "category", "", "Bens, Serviços or TIC")
	planAddCmd.Flags().StringVar(&addValue, "value", "", "estimated value")
	planAddCmd.Flags().StringVar(&addStart, "start", "", "desired start date (DD/MM/YYYY)")
	planAddCmd.Flags().StringVar(&addEnd, "end", "", "desired end date (DD/MM/YYYY)")
	planAddCmd.Flags().StringVar(&addArea, "area", "", "requesting area")
	planAddCmd.Flags().StringVar(&addProtocol, "protocol", "", "case protocol number")
	planAddCmd.Flags().StringVar(&addFromXLSX, "from-xlsx", "", "spreadsheet of manual items")

	planCmd.AddCommand(planLinkCmd, planTeamCmd, planAddCmd)
}
