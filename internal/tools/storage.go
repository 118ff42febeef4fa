package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/signal"
)

func statsSummaryPath(node string) string {
	return "/api/v1/nodes/" + node + "/proxy/stats/summary"
}

func (t *Toolbox) nodeSummary(ctx context.Context, node string) (parser.NodeSummary, error) {
	raw, err := t.rawGet(ctx, node, statsSummaryPath(node))
	if err != nil {
		return parser.NodeSummary{}, err
	}
	return parser.ParseStatsSummary(node, raw)
}

func (t *Toolbox) nodeNames(ctx context.Context) ([]string, error) {
	raw, err := t.list(ctx, "nodes", "")
	if err != nil {
		return nil, err
	}
	return parser.ParseNodeNames(raw)
}

func consumerTable(empty string, recs []domain.PodConsumptionRecord) *report.Table {
	tbl := report.NewTable(empty, "Pod", "Namespace", "Consumed")
	for _, r := range recs {
		tbl.Add(report.Mono(r.PodName), report.Text(r.Namespace), report.Bytes(r.Consumed))
	}
	return tbl
}

// fsUsePct notes on rep when the percentage cannot be computed or had to be
// clamped.
func fsUsePct(rep *report.Report, s domain.NodeStorageRecord) quantity.Quantity {
	pct, err := s.FsUsed.PercentOf(s.FsCapacity)
	if err != nil {
		rep.Note(fmt.Sprintf("node %s: filesystem use: %v", s.NodeName, err))
		return quantity.FromPercent(0)
	}
	if pct.Clamped() {
		rep.Note(clampNote("node "+s.NodeName+" filesystem", pct))
	}
	return pct
}

func clampNote(subject string, pct quantity.Quantity) string {
	return fmt.Sprintf("%s usage exceeds reported capacity; shown as %s", subject, pct)
}

// StorageUsage reports node filesystem, image filesystem and pod ephemeral
// storage from the kubelet stats summary of each node.
func (t *Toolbox) StorageUsage(ctx context.Context, in StorageUsageInput) (*report.Report, error) {
	topN := orInt(in.TopN, t.opts.Thresholds.TopN)
	if err := firstErr(checkName("node", in.Node, false), checkAtLeastOne("top_n", topN)); err != nil {
		return nil, err
	}

	nodes := []string{in.Node}
	if in.Node == "" {
		var err error
		if nodes, err = t.nodeNames(ctx); err != nil {
			return nil, err
		}
	}
	units, err := collectPerNode(ctx, t, StorageUsageTool, nodes, t.nodeSummary)
	if err != nil {
		return nil, err
	}
	if err := allFailed(StorageUsageTool, units); err != nil {
		return nil, err
	}

	rep := &report.Report{
		Title:    fmt.Sprintf("Storage Usage Report (%s)", plural(len(nodes), "node")),
		Coverage: report.Coverage{Total: len(units), Unit: "nodes"},
	}
	summary := report.NewTable("No nodes found.", "Node", "FS Used", "FS Capacity", "FS Available", "Use%", "Image FS", "Pod Ephemeral")
	var used, capacity, ephemeral []quantity.Quantity
	var details []report.Section
	for _, u := range units {
		if !u.OK() {
			rep.Note(unavailableNote("node "+u.Name, u.Err))
			summary.Add(report.Mono(u.Name), report.Text("unavailable"))
			continue
		}
		rep.Coverage.Collected++
		s := u.Value.Storage
		imageFs := report.Missing
		if s.HasImageFs {
			imageFs = report.Bytes(s.ImageFsUsed)
		}
		summary.Add(report.Mono(s.NodeName), report.Bytes(s.FsUsed), report.Bytes(s.FsCapacity),
			report.Bytes(s.FsAvailable), report.Percent(fsUsePct(rep, s)), imageFs, report.Bytes(s.PodEphemeral))
		used = append(used, s.FsUsed)
		capacity = append(capacity, s.FsCapacity)
		ephemeral = append(ephemeral, s.PodEphemeral)
		for _, sk := range u.Value.Skipped {
			rep.Note(fmt.Sprintf("node %s: skipped %s", s.NodeName, sk))
		}

		node := &report.Report{Title: "Node: " + s.NodeName}
		lines := []string{
			fmt.Sprintf("**Filesystem**: Used: %s | Capacity: %s | Available: %s", s.FsUsed, s.FsCapacity, s.FsAvailable),
		}
		if s.HasImageFs {
			lines = append(lines, fmt.Sprintf("**Image FS**: Used: %s", s.ImageFsUsed))
		}
		lines = append(lines, fmt.Sprintf("**Total Pod Ephemeral Storage**: %s", s.PodEphemeral))
		node.Add("", report.List{Items: lines})
		node.Add("Top Pod Consumers", consumerTable("No pods are using ephemeral storage.", signal.TopN(u.Value.Pods, topN)))
		details = append(details, report.Section{Body: report.Nested{Report: node}})
	}
	rep.Add("Summary", summary)

	if len(units) > 1 {
		totalUsed, err1 := quantity.Sum(used...)
		totalCap, err2 := quantity.Sum(capacity...)
		totalEph, err3 := quantity.Sum(ephemeral...)
		if err := firstErr(err1, err2, err3); err != nil {
			return nil, err
		}
		pct, err := totalUsed.PercentOf(totalCap)
		if err != nil {
			return nil, err
		}
		if pct.Clamped() {
			rep.Note(clampNote("cluster filesystem", pct))
		}
		rep.Add("Cluster Total", report.List{Items: []string{
			fmt.Sprintf("**Filesystem**: Used: %s of %s (%s) across %d nodes", totalUsed, totalCap, pct, rep.Coverage.Collected),
			fmt.Sprintf("**Total Pod Ephemeral Storage**: %s", totalEph),
		}})
	}
	rep.Sections = append(rep.Sections, details...)
	return rep, nil
}

const (
	sectionDf         = "df"
	sectionImages     = "images"
	sectionContainers = "containers"
)

var forensicsCommands = map[string]string{
	sectionDf:         "df -h",
	sectionImages:     "crictl images -o json",
	sectionContainers: "crictl ps -o json",
}

func (t *Toolbox) debugNode(ctx context.Context, node, script string) (string, error) {
	args := []string{"debug", "node/" + node}
	if t.opts.DebugImage != "" {
		args = append(args, "--image="+t.opts.DebugImage)
	}
	args = append(args, "--", "chroot", "/host", "/bin/bash", "-c", script)
	return t.run(ctx, node, args...)
}

func sectionBody(node string, sections map[string]parser.Section, name string) (string, error) {
	s, ok := sections[name]
	if !ok {
		return "", diagerr.Unavailable(node, name, fmt.Errorf("no %s output in debug session", name))
	}
	if s.ExitCode != 0 {
		first, _, _ := strings.Cut(strings.TrimSpace(s.Body), "\n")
		return "", diagerr.Unavailable(node, name, &domain.ExitError{Code: s.ExitCode, Stderr: first})
	}
	return s.Body, nil
}

// StorageForensics inspects one node in a debug session (df, image
// inventory, running containers) and through its stats summary. Each source
// fails on its own.
func (t *Toolbox) StorageForensics(ctx context.Context, in StorageForensicsInput) (*report.Report, error) {
	topN := orInt(in.TopN, t.opts.Thresholds.TopN)
	if err := firstErr(checkName("node", in.Node, true), checkAtLeastOne("top_n", topN)); err != nil {
		return nil, err
	}
	node := in.Node
	rep := &report.Report{
		Title:    "Storage Forensics: node " + node,
		Coverage: report.Coverage{Total: 4, Unit: "sources"},
	}

	script := parser.SectionScript(forensicsCommands, []string{sectionDf, sectionImages, sectionContainers})
	out, debugErr := t.debugNode(ctx, node, script)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sections := parser.SplitSections(out)
	at := t.opts.Now().UTC()

	summary, summaryErr := t.nodeSummary(ctx, node)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if debugErr != nil && summaryErr != nil {
		return nil, debugErr
	}

	source := func(name string) (string, error) {
		if debugErr != nil {
			return "", debugErr
		}
		return sectionBody(node, sections, name)
	}

	// filesystems
	fsTable := report.NewTable("No filesystems reported.", "Filesystem", "Size", "Used", "Available", "Use%", "Mounted On")
	if body, err := source(sectionDf); err != nil {
		rep.Note(unavailableNote("df on node "+node, err))
	} else if table, err := parser.ParseDiskUsage(node, body); err != nil {
		rep.Note(unavailableNote("df on node "+node, err))
	} else {
		rep.Coverage.Collected++
		for _, fs := range table.Filesystems {
			pct := fs.UsePct
			if !fs.HasUsePct {
				var err error
				if pct, err = fs.Used.PercentOf(fs.Size); err != nil {
					rep.Note(fmt.Sprintf("df %s on node %s: %v", fs.MountedOn, node, err))
				}
			}
			if pct.Clamped() {
				rep.Note(clampNote("df "+fs.MountedOn+" on node "+node, pct))
			}
			fsTable.Add(report.Text(fs.Filesystem), report.Bytes(fs.Size), report.Bytes(fs.Used),
				report.Bytes(fs.Available), report.Highlight(pct, 85), report.Text(fs.MountedOn))
		}
		for _, sk := range table.Skipped {
			rep.Note("df row skipped: " + sk)
		}
	}
	rep.Add("Filesystems", fsTable)

	// kubelet view
	if summaryErr != nil {
		rep.Note(unavailableNote("stats summary of node "+node, summaryErr))
	} else {
		rep.Coverage.Collected++
		s := summary.Storage
		lines := []string{
			fmt.Sprintf("**Node Filesystem**: Used: %s | Capacity: %s | Available: %s (%s)", s.FsUsed, s.FsCapacity, s.FsAvailable, fsUsePct(rep, s)),
		}
		if s.HasImageFs {
			lines = append(lines, fmt.Sprintf("**Image FS**: Used: %s", s.ImageFsUsed))
		}
		lines = append(lines, fmt.Sprintf("**Total Pod Ephemeral Storage**: %s", s.PodEphemeral))
		rep.Add("Kubelet Storage Summary", report.List{Items: lines})
	}

	// reclaimable space
	var images []parser.Image
	var containers []parser.ContainerRef
	imgErr := func() error {
		body, err := source(sectionImages)
		if err != nil {
			return err
		}
		images, err = parser.ParseImageInventory(node, []byte(body))
		return err
	}()
	ctrErr := func() error {
		body, err := source(sectionContainers)
		if err != nil {
			return err
		}
		containers, err = parser.ParseContainers(node, []byte(body))
		return err
	}()
	if imgErr == nil {
		rep.Coverage.Collected++
	}
	if ctrErr == nil {
		rep.Coverage.Collected++
	}

	var recs []string
	reclaim := signal.UnknownReclaimable(node)
	switch {
	case imgErr != nil:
		rep.Note(unavailableNote("image inventory of node "+node, imgErr))
	case ctrErr != nil:
		rep.Note(unavailableNote("running containers of node "+node, ctrErr))
	default:
		reclaim = signal.Reclaimable(node, images, containers, at)
	}
	rep.Add("Reclaimable Image Space", report.Prose{Text: reclaimText(reclaim)})
	if reclaim.Known && !reclaim.Size.IsZero() {
		recs = append(recs, fmt.Sprintf("Prune unused images to free up to %s: `oc debug node/%s -- chroot /host crictl rmi --prune`", reclaim.Size, node))
	}

	// writable layers vs emptyDir volumes
	if summaryErr == nil {
		rep.Add("Top Writable-Layer Consumers", consumerTable("No container writable layers in use.", signal.TopN(summary.Writable, topN)))
		rep.Add("Top Ephemeral-Volume Consumers", consumerTable("No emptyDir volumes in use.", signal.TopN(summary.Volumes, topN)))
		if top := signal.TopN(summary.Writable, 1); len(top) == 1 {
			recs = append(recs, fmt.Sprintf("Largest writable layer is %s in `%s`; containers writing to their root filesystem should use a volume instead", top[0].Consumed, top[0].Key()))
		}
	}
	rep.Add("Recommendations", report.List{Items: recs, Empty: "No action needed."})
	return rep, nil
}

func reclaimText(r domain.ReclaimableSpaceRecord) string {
	if !r.Known {
		return "Unknown: the image inventory could not be read, so reclaimable space was not computed."
	}
	at := r.InventoryTime.Format(time.RFC3339)
	if r.Size.IsZero() {
		return fmt.Sprintf("%s: all %d images on disk are referenced by running containers (inventory taken %s).", r.Size, r.TotalImages, at)
	}
	return fmt.Sprintf("**%s** reclaimable: %d of %d images are not referenced by any running container (inventory taken %s). Containers started after the inventory may make this an overestimate.",
		r.Size, r.Unreferenced, r.TotalImages, at)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
