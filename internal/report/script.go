package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
	"github.com/mescon/Dupearr/internal/planner"
)

// WriteCleanupScript renders a plan as a reviewable shell script. The script
// only ever calls safe_remove, which checks file existence first; nothing is
// deleted by this program itself.
func WriteCleanupScript(w io.Writer, plans []planner.GroupPlan) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "#!/bin/bash\n\n")
	fmt.Fprintf(bw, "# Duplicate cleanup script\n")
	fmt.Fprintf(bw, "# Generated based on Sonarr/Radarr managed paths\n\n")

	fmt.Fprintf(bw, "# Function to safely remove files\n")
	fmt.Fprintf(bw, "safe_remove() {\n")
	fmt.Fprintf(bw, "    file=\"$1\"\n")
	fmt.Fprintf(bw, "    if [ -f \"$file\" ]; then\n")
	fmt.Fprintf(bw, "        echo \"Removing: $file\"\n")
	fmt.Fprintf(bw, "        rm \"$file\"\n")
	fmt.Fprintf(bw, "    else\n")
	fmt.Fprintf(bw, "        echo \"File not found: $file\"\n")
	fmt.Fprintf(bw, "    fi\n")
	fmt.Fprintf(bw, "}\n\n")

	for _, p := range plans {
		fmt.Fprintf(bw, "\necho \"Processing group %d...\"\n", p.Index)
		fmt.Fprintf(bw, "\n# Group %d: %s\n", p.Index, p.BaseFolder)

		fmt.Fprintf(bw, "\n# Base files:\n")
		for _, fs := range p.BaseFiles {
			writeStatusComment(bw, fs)
		}

		fmt.Fprintf(bw, "\n# Similar files:\n")
		for _, fs := range p.SimilarFiles {
			writeStatusComment(bw, fs)
		}

		switch p.Decision {
		case planner.DecisionRemoveSimilar, planner.DecisionRemoveBase:
			fmt.Fprintf(bw, "\n# %s\n", p.Rationale)
			for _, a := range p.Actions() {
				if a.Kind == domain.ActionRemove {
					fmt.Fprintf(bw, "safe_remove \"%s\"\n", a.Path)
				}
			}
		default:
			fmt.Fprintf(bw, "\n# Manual review required - multiple or no managed versions found\n")
			fmt.Fprintf(bw, "# %s\n", p.Rationale)
			if p.Suggestion != "" {
				fmt.Fprintf(bw, "# %s\n", p.Suggestion)
			}
		}

		fmt.Fprintf(bw, "\n")
	}

	return bw.Flush()
}

func writeStatusComment(w io.Writer, fs planner.FileStatus) {
	size := "Unknown"
	if fs.File.Size > 0 {
		size = HumanSize(fs.File.Size)
	}
	status := "UNMANAGED"
	if fs.Managed {
		status = "MANAGED by " + fs.ManagedBy
	}
	fmt.Fprintf(w, "# %s (%s) - %s\n", fs.File.Path, size, status)
}

// SaveCleanupScript writes the script to a file with execute permission.
func SaveCleanupScript(path string, plans []planner.GroupPlan) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create cleanup script %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteCleanupScript(f, plans); err != nil {
		return err
	}
	logger.Infof("Report: wrote cleanup script for %d groups to %s", len(plans), path)
	return nil
}
