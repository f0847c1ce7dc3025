package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/clemoune/spec2nii/pkg/convert"
	"github.com/clemoune/spec2nii/pkg/dicom"
	"github.com/clemoune/spec2nii/pkg/header"
	"github.com/clemoune/spec2nii/pkg/qc"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Summarize MRS DICOM files without writing output",
	Long: `Run the conversion pipeline on each file and print what a conversion
would produce: acquisition type, data shape, geometry and the key
header fields, plus a quick signal summary of the first voxel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for i, path := range args {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if err := inspectFile(cmd.OutOrStdout(), path, dicom.Load); err != nil {
				return fmt.Errorf("failed to inspect %s: %v", path, err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectFile(w io.Writer, path string, source convert.Source) error {
	acq, err := source(path)
	if err != nil {
		return err
	}
	kind, err := convert.Classify(acq)
	if err != nil {
		return err
	}
	res, err := convert.ConvertFile(acq, nil)
	if err != nil {
		return err
	}

	size := res.Orientation.VoxelSize()

	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  Acquisition type:  %s\n", kind)
	fmt.Fprintf(w, "  Data shape:        %v\n", res.Spectrum.Shape())
	fmt.Fprintf(w, "  Spectral points:   %d\n", res.Spectrum.SpectralPoints())
	fmt.Fprintf(w, "  Dwell time:        %g s\n", res.DwellTime)
	fmt.Fprintf(w, "  Voxel size:        %.2f x %.2f x %.2f mm\n", size[0], size[1], size[2])
	fmt.Fprintf(w, "  Nucleus:           %s at %.4f MHz\n", res.Meta.Nucleus(), res.Meta.Frequency())
	fmt.Fprintf(w, "  Protocol:          %s\n", metaString(res.Meta, "ProtocolName"))
	fmt.Fprintf(w, "  Series:            %s\n", acq.Fields["SeriesDescription"])
	fmt.Fprintf(w, "  Sequence:          %s\n", metaString(res.Meta, "SequenceName"))
	fmt.Fprintf(w, "  Manufacturer:      %s %s\n",
		metaString(res.Meta, "Manufacturer"), metaString(res.Meta, "ManufacturersModelName"))
	fmt.Fprintf(w, "  Voxel to scanner:\n%s\n", res.Orientation)

	if cfg.Inspect.Preview {
		sum, err := qc.Preview(res.Spectrum.FID(0, 0, 0), res.DwellTime)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  First voxel signal:\n")
		fmt.Fprintf(w, "    Mean magnitude:  %.4g (std %.4g)\n", sum.MeanMagnitude, sum.StdMagnitude)
		fmt.Fprintf(w, "    Max magnitude:   %.4g\n", sum.MaxMagnitude)
		fmt.Fprintf(w, "    Dominant peak:   bin %d, %.1f Hz\n", sum.PeakBin, sum.PeakHz)
	}
	return nil
}

// metaString fetches a header field for display, empty when absent.
func metaString(meta *header.Extension, key string) string {
	v, ok := meta.Get(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}
