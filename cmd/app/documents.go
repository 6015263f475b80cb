package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/models"
)

func catalogCommand() *cli.Command {
	itemFlag := func() cli.Flag {
		return &cli.IntFlag{Name: "item", Aliases: []string{"i"}, Usage: "Zero-based item index"}
	}
	return &cli.Command{
		Name:  "catalog",
		Usage: "Edit market catalog files",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the market files",
				Action: catalogList,
			},
			{
				Name:      "show",
				Usage:     "Print a catalog as JSON, or one item or the metadata as form fields",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					itemFlag(),
					&cli.BoolFlag{Name: "fields", Usage: "Print the catalog metadata fields"},
				},
				Action: catalogShow,
			},
			{
				Name:      "set",
				Usage:     "Set metadata fields, or item fields with --item, and save",
				ArgsUsage: "NAME FIELD VALUE [FIELD VALUE...]",
				Flags:     []cli.Flag{itemFlag()},
				Action:    catalogSet,
			},
			{
				Name:      "bulk",
				Usage:     "Apply the same values to several items and save",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "indices", Usage: "Comma-separated item indices"},
					&cli.BoolFlag{Name: "all", Usage: "Select every item"},
					&cli.StringSliceFlag{Name: "set", Usage: "FIELD=VALUE, repeatable"},
					&cli.IntFlag{Name: "slider", Usage: "Sell price slider position 0-100, 0 means unset"},
				},
				Action: catalogBulk,
			},
			{
				Name:      "add-types",
				Usage:     "Append template items for class names not yet in the catalog",
				ArgsUsage: "NAME [CLASSNAME...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Usage: "Also add every type name matching this filter"},
				},
				Action: catalogAddTypes,
			},
			{
				Name:      "new",
				Usage:     "Create a market file from the template",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "overwrite", Usage: "Replace an existing file"},
				},
				Action: catalogNew,
			},
			{
				Name:      "lint",
				Usage:     "Report out-of-range values; all catalogs when no NAME is given",
				ArgsUsage: "[NAME...]",
				Action:    catalogLint,
			},
		},
	}
}

func catalogList(_ context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	files, err := e.sess.ListCatalogFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(e.out, f)
	}
	return nil
}

func printFields(out io.Writer, fields []string, text func(string) (string, error)) error {
	for _, f := range fields {
		v, err := text(f)
		if err != nil {
			return err
		}
		if strings.Contains(v, "\n") || f == models.FieldSpawnAttachments || f == models.FieldVariants || f == "Categories" || f == "Items" {
			fmt.Fprintf(out, "%s:\n", f)
			for _, line := range catalog.ParseLines(v) {
				fmt.Fprintf(out, "  %s\n", line)
			}
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", f, v)
	}
	return nil
}

func catalogShow(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	doc, err := e.sess.OpenCatalog(cmd.Args().First())
	if err != nil {
		return err
	}

	switch {
	case cmd.IsSet("item"):
		i := int(cmd.Int("item"))
		if i < 0 || i >= len(doc.Items) {
			return fmt.Errorf("%w: item index %d out of range [0,%d)", apperr.ErrValidation, i, len(doc.Items))
		}
		form := catalog.ItemForm(doc.Items[i])
		fields := slices.Concat(models.ItemFields, []string{models.FieldSpawnAttachments, models.FieldVariants})
		if err := printFields(e.out, fields, func(f string) (string, error) { return form[f], nil }); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "SellSlider: %d\n", catalog.SliderFromSellPrice(doc.Items[i].SellPricePercent))
		return nil
	case cmd.Bool("fields"):
		if err := printFields(e.out, catalog.CatalogFields, func(f string) (string, error) {
			return catalog.CatalogFieldText(doc, f)
		}); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Items: %d\n", len(doc.Items))
		return nil
	}

	data, err := catalog.Encode(doc)
	if err != nil {
		return err
	}
	_, err = e.out.Write(data)
	return err
}

func catalogSet(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 3); err != nil {
		return err
	}
	args := cmd.Args().Slice()
	name, pairs := args[0], args[1:]
	if len(pairs)%2 != 0 {
		return fmt.Errorf("%w: field %q has no value", apperr.ErrValidation, pairs[len(pairs)-1])
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	if _, err := e.sess.OpenCatalog(name); err != nil {
		return err
	}

	err = e.sess.UpdateCatalog(func(doc *models.CatalogDocument) error {
		if cmd.IsSet("item") {
			i := int(cmd.Int("item"))
			if i < 0 || i >= len(doc.Items) {
				return fmt.Errorf("%w: item index %d out of range [0,%d)", apperr.ErrValidation, i, len(doc.Items))
			}
			form := make(map[string]string, len(pairs)/2)
			for j := 0; j < len(pairs); j += 2 {
				field, value := pairs[j], pairs[j+1]
				// Array fields take one value per line; on the command
				// line commas separate them too.
				if field == models.FieldSpawnAttachments || field == models.FieldVariants {
					value = strings.ReplaceAll(value, ",", "\n")
				}
				form[field] = value
			}
			var hard []error
			for _, err := range catalog.ApplyItemForm(&doc.Items[i], form) {
				if err := e.warnCoerced(err); err != nil {
					hard = append(hard, err)
				}
			}
			return errors.Join(hard...)
		}
		for j := 0; j < len(pairs); j += 2 {
			field, value := pairs[j], pairs[j+1]
			if field == catalog.FieldColor && strings.HasPrefix(strings.TrimSpace(value), "#") {
				rgba, err := catalog.ColorFromRGB(value)
				if err != nil {
					return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
				}
				value = rgba
			}
			if err := e.warnCoerced(catalog.SetCatalogField(doc, field, value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := e.sess.SaveCatalog(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Saved %s\n", name)
	return nil
}

func catalogBulk(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	fields, err := parseAssignments(cmd.StringSlice("set"))
	if err != nil {
		return err
	}
	edit := catalog.BulkEdit{Fields: fields}
	if cmd.IsSet("slider") {
		pos := int(cmd.Int("slider"))
		edit.SellSlider = &pos
	}
	if err := edit.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	doc, err := e.sess.OpenCatalog(cmd.Args().First())
	if err != nil {
		return err
	}

	var indices []int
	switch {
	case cmd.Bool("all"):
		indices = make([]int, len(doc.Items))
		for i := range indices {
			indices[i] = i
		}
	case cmd.String("indices") != "":
		if indices, err = parseIndices(cmd.String("indices")); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: select items with --indices or --all", apperr.ErrValidation)
	}

	res, err := e.sess.BulkEdit(edit, indices)
	if err != nil {
		return err
	}
	if res.Modified > 0 {
		if err := e.sess.SaveCatalog(); err != nil {
			return err
		}
	}
	fmt.Fprintf(e.out, "Modified %d of %d item(s).\n", res.Modified, len(indices))
	return nil
}

func catalogAddTypes(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	names := slices.Clone(cmd.Args().Slice()[1:])
	if filter := cmd.String("filter"); filter != "" {
		matched, err := e.sess.TypeNames(filter)
		if err != nil {
			return err
		}
		names = append(names, matched...)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no class names given", apperr.ErrValidation)
	}
	res, err := e.sess.AddTypesToCatalog(cmd.Args().First(), names)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Added %d item(s), skipped %d already present.\n", res.Added, res.Skipped)
	return nil
}

func catalogNew(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	name, err := e.sess.NewCatalogFromTemplate(cmd.Args().First(), cmd.Bool("overwrite"))
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Created %s\n", name)
	return nil
}

func catalogLint(_ context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	names := cmd.Args().Slice()
	if len(names) == 0 {
		if names, err = e.sess.ListCatalogFiles(); err != nil {
			return err
		}
	}

	bad := 0
	for _, name := range names {
		doc, err := e.sess.OpenCatalog(name)
		if err != nil {
			fmt.Fprintf(e.out, "%s: %v\n", name, err)
			bad++
			continue
		}
		issues := catalog.Issues(catalog.ValidateCatalog(doc))
		if len(issues) == 0 {
			continue
		}
		bad++
		for _, field := range slices.Sorted(maps.Keys(issues)) {
			fmt.Fprintf(e.out, "%s: %s: %s\n", name, field, issues[field])
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d catalog(s) have issues", bad, len(names))
	}
	fmt.Fprintf(e.out, "%d catalog(s) OK\n", len(names))
	return nil
}

func traderCommand() *cli.Command {
	return &cli.Command{
		Name:  "trader",
		Usage: "Edit trader files",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the trader files",
				Action: traderList,
			},
			{
				Name:   "categories",
				Usage:  "List the categories a trader may sell (market file names)",
				Action: traderCategories,
			},
			{
				Name:      "show",
				Usage:     "Print a trader as JSON, or as form fields",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "fields", Usage: "Print the trader fields"},
				},
				Action: traderShow,
			},
			{
				Name:      "set",
				Usage:     "Set one trader field and save; Items takes \"ClassName: value\" lines",
				ArgsUsage: "NAME FIELD VALUE",
				Action:    traderSet,
			},
			{
				Name:      "add-category",
				Usage:     "Add categories to a trader and save",
				ArgsUsage: "NAME CATEGORY...",
				Action:    traderAddCategory,
			},
			{
				Name:      "remove-category",
				Usage:     "Remove categories from a trader and save",
				ArgsUsage: "NAME CATEGORY...",
				Action:    traderRemoveCategory,
			},
		},
	}
}

func traderList(_ context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	files, err := e.sess.ListTraderFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(e.out, f)
	}
	return nil
}

func traderCategories(_ context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	cats, err := e.sess.AvailableCategories()
	if err != nil {
		return err
	}
	for _, c := range cats {
		fmt.Fprintln(e.out, c)
	}
	return nil
}

func traderShow(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	doc, err := e.sess.OpenTrader(cmd.Args().First())
	if err != nil {
		return err
	}
	if cmd.Bool("fields") {
		fields := slices.Concat(models.TraderFields, []string{"Categories", "Items"})
		return printFields(e.out, fields, func(f string) (string, error) {
			switch f {
			case "Categories":
				return catalog.JoinLines(doc.Categories), nil
			case "Items":
				return catalog.FormatTraderItems(doc.Items), nil
			}
			return catalog.TraderFieldText(doc, f)
		})
	}
	data, err := catalog.Encode(doc)
	if err != nil {
		return err
	}
	_, err = e.out.Write(data)
	return err
}

func traderSet(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 3); err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	name, field, value := cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2)
	if _, err := e.sess.OpenTrader(name); err != nil {
		return err
	}
	err = e.sess.UpdateTrader(func(doc *models.TraderDocument) error {
		switch field {
		case "Items":
			doc.Items, _ = catalog.ParseTraderItems(value, doc.Items)
			return nil
		case "Categories":
			doc.Categories = catalog.ParseLines(strings.ReplaceAll(value, ",", "\n"))
			return nil
		}
		return e.warnCoerced(catalog.SetTraderField(doc, field, value))
	})
	if err != nil {
		return err
	}
	if err := e.sess.SaveTrader(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Saved %s\n", name)
	return nil
}

func traderAddCategory(_ context.Context, cmd *cli.Command) error {
	return editCategories(cmd, "Added", func(e *cliEnv, c string) (bool, error) { return e.sess.AddCategory(c) })
}

func traderRemoveCategory(_ context.Context, cmd *cli.Command) error {
	return editCategories(cmd, "Removed", func(e *cliEnv, c string) (bool, error) { return e.sess.RemoveCategory(c) })
}

func editCategories(cmd *cli.Command, verb string, apply func(*cliEnv, string) (bool, error)) error {
	if err := requireArgs(cmd, 2); err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	name := cmd.Args().First()
	if _, err := e.sess.OpenTrader(name); err != nil {
		return err
	}
	changed := 0
	for _, c := range cmd.Args().Slice()[1:] {
		ok, err := apply(e, c)
		if err != nil {
			return err
		}
		if ok {
			changed++
		}
	}
	if changed > 0 {
		if err := e.sess.SaveTrader(); err != nil {
			return err
		}
	}
	fmt.Fprintf(e.out, "%s %d category(ies).\n", verb, changed)
	return nil
}
