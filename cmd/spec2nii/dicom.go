package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clemoune/spec2nii/pkg/convert"
	"github.com/clemoune/spec2nii/pkg/nifti"
)

var (
	nameOverride string
	outputDir    string
	dimTag       string
	jsonSidecar  bool
)

var dicomCmd = &cobra.Command{
	Use:   "dicom <file>...",
	Short: "Convert Siemens MRS DICOM files to NIfTI-MRS",
	Long: `Convert one or more Siemens MRS DICOM files. Files whose shape,
orientation and dwell time all match are stacked along a trailing axis
into one container; otherwise each file becomes its own numbered
container. Output names derive from the protocol name unless -f is
given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()

		outputs, err := convert.ConvertBatch(args, convert.BatchOptions{
			NameOverride: nameOverride,
			DimTag:       dimTag,
			Workers:      cfg.Processing.Workers,
			Logger:       newLogger(),
		})
		if err != nil {
			return fmt.Errorf("conversion failed: %v", err)
		}

		dir := outputDir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		opts := nifti.WriteOptions{
			Dir:      dir,
			Compress: cfg.Output.Compress,
			Sidecar:  jsonSidecar || cfg.Output.Sidecar,
		}

		var written []string
		for _, out := range outputs {
			paths, err := nifti.WriteFile(out, opts)
			if err != nil {
				return fmt.Errorf("failed to write %s: %v", out.Name, err)
			}
			written = append(written, paths...)
		}

		fmt.Printf("Converted %d file(s) into %d container(s) in %.2f seconds\n",
			len(args), len(outputs), time.Since(startTime).Seconds())
		for _, p := range written {
			fmt.Printf("  %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dicomCmd)

	dicomCmd.Flags().StringVarP(&nameOverride, "fileout", "f", "", "Override the protocol-derived output name")
	dicomCmd.Flags().StringVarP(&outputDir, "outdir", "o", "", "Directory to write containers to (default: config output dir)")
	dicomCmd.Flags().StringVarP(&dimTag, "tag", "t", "", "Dimension tag for the stacked file axis, e.g. DIM_DYN")
	dicomCmd.Flags().BoolVarP(&jsonSidecar, "json", "j", false, "Also write the header extension as a JSON sidecar")
}
