package cmd

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/layout"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the visual order and reveal schedule of a column layout",
	Long: `Order lays the catalog out in columns, ranks every tile by its rendered
position (top, then left) and prints when each tile would be revealed.`,
	RunE: runOrder,
}

func init() {
	rootCmd.AddCommand(orderCmd)

	orderCmd.Flags().Int("columns", 3, "Number of columns")
	orderCmd.Flags().Float64("width", 1200, "Layout width in pixels")
	orderCmd.Flags().Float64("gap", 12, "Gap between tiles in pixels")

	bindFlags(orderCmd.Flags(), []flagBinding{
		{"order.columns", "columns"},
		{"order.width", "width"},
		{"order.gap", "gap"},
	})
}

func runOrder(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	g, err := openGallery()
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	cols := layout.Columns{
		Count: viper.GetInt("order.columns"),
		Width: viper.GetFloat64("order.width"),
		Gap:   viper.GetFloat64("order.gap"),
	}
	if cols.Count <= 0 {
		return fmt.Errorf("columns must be positive, got %d", cols.Count)
	}
	reveal := layout.NewScheduler(nil, layout.Options{
		Base: viper.GetDuration("reveal.base"),
		Step: viper.GetDuration("reveal.step"),
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styleTitle.Render(fmt.Sprintf("%d images in %d columns", len(g.Images), cols.Count)))
	placement := cols.Place(g.Images)
	printKeyValue(out, "column width", fmt.Sprintf("%.0fpx", placement.ColumnWidth))
	printKeyValue(out, "height", fmt.Sprintf("%.0fpx", placement.Height))
	printKeyValue(out, "last reveal", reveal.Delay(max(len(g.Images)-1, 0)).String())
	fmt.Fprintln(out, renderOrder(g.Images, cols, reveal.Delay))
	return nil
}

// renderOrder returns the schedule table, one row per tile in reveal order.
func renderOrder(images []catalog.Image, cols layout.Columns, delay func(rank int) time.Duration) string {
	placement := cols.Place(images)
	order := layout.VisualOrder(len(images), placement)

	byRank := make([]int, len(order))
	for index, rank := range order {
		byRank[rank] = index
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styleDim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		}).
		Headers("RANK", "INDEX", "SRC", "TOP", "LEFT", "SIZE", "REVEAL")

	for rank, index := range byRank {
		img := images[index]
		r, _ := placement.Measure(index)
		t.Row(
			strconv.Itoa(rank),
			strconv.Itoa(index),
			img.Src,
			strconv.Itoa(int(math.Round(r.Top))),
			strconv.Itoa(int(math.Round(r.Left))),
			fmt.Sprintf("%.0f×%.0f", r.Width, r.Height),
			delay(rank).String(),
		)
	}
	return t.Render()
}
