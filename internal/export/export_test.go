package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/piwi3910/Palletizer/internal/pallet"
	"github.com/xuri/excelize/v2"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

func testLayer() model.Layer {
	l := model.NewLayer(300, 1200, 800)
	l = l.With(model.Placement{Box: model.NewBox("A", 600, 400, 300, 12)})
	l = l.With(model.Placement{Box: model.NewBox("B", 600, 400, 250, 8), Position: model.Position{X: 600}})
	return l
}

// buildTestResult stacks two layers on one pallet and leaves one box unplaced.
func buildTestResult(t *testing.T) model.PackResult {
	t.Helper()
	p := pallet.New(model.Cuboid{Width: 1200, Depth: 800, Height: 2200}, 1500, pallet.WithID("p-1"))
	first := testLayer()
	second := model.NewLayer(200, 1200, 800).With(model.Placement{Box: model.NewBox("C", 1200, 800, 200, 30)})
	if err := p.PlaceLayer(first, 0); err != nil {
		t.Fatalf("place first layer: %v", err)
	}
	if err := p.PlaceLayer(second, 300); err != nil {
		t.Fatalf("place second layer: %v", err)
	}
	return model.PackResult{
		RunID:    "01TESTRUN",
		Layers:   []model.Layer{first, second},
		Pallets:  []model.PalletResult{p.Result()},
		Unplaced: []model.Box{model.NewBox("X", 3000, 3000, 3000, 1)},
	}
}

func assertFile(t *testing.T, path string, minSize int64) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file was not created: %v", err)
	}
	if info.Size() < minSize {
		t.Errorf("%s seems too small: %d bytes", filepath.Base(path), info.Size())
	}
}

// ─── CSV Tables ────────────────────────────────────────────

func TestWriteLayerCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLayerCSV(&buf, testLayer()); err != nil {
		t.Fatalf("WriteLayerCSV returned error: %v", err)
	}
	want := "id,x,y,width,depth,height\nA,0,0,600,400,300\nB,600,0,600,400,250\n"
	if buf.String() != want {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWritePalletCSV(t *testing.T) {
	res := buildTestResult(t)
	var buf bytes.Buffer
	if err := WritePalletCSV(&buf, res.Pallets[0]); err != nil {
		t.Fatalf("WritePalletCSV returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if lines[3] != "C,0,0,300,1200,800,200" {
		t.Errorf("unexpected row for C: %s", lines[3])
	}
}

func TestExportCSV_WritesLayerAndPalletFiles(t *testing.T) {
	dir := t.TempDir()
	paths, err := ExportCSV(dir, buildTestResult(t))
	if err != nil {
		t.Fatalf("ExportCSV returned error: %v", err)
	}
	want := []string{"layer_01.csv", "layer_02.csv", "pallet_01.csv"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), paths)
	}
	for i, name := range want {
		if filepath.Base(paths[i]) != name {
			t.Errorf("expected %s, got %s", name, paths[i])
		}
		assertFile(t, paths[i], 10)
	}
}

// ─── Packed-box log ────────────────────────────────────────

func TestPackLog_RecordsEverySnapshot(t *testing.T) {
	var buf bytes.Buffer
	log := NewPackLog(&buf)
	p := pallet.New(model.Cuboid{Width: 100, Depth: 100, Height: 100}, 100, pallet.WithID("p"), pallet.WithSnapshotter(log))

	if err := p.PlaceBox(model.NewBox("a", 50, 50, 50, 1).PlacedAt(model.Position{})); err != nil {
		t.Fatal(err)
	}
	if err := p.PlaceBox(model.NewBox("b", 50, 50, 50, 1).PlacedAt(model.Position{X: 50})); err != nil {
		t.Fatal(err)
	}

	want := "pallet p boxes=1\na 0 0 0 50 50 50\n\n" +
		"pallet p boxes=2\na 0 0 0 50 50 50\nb 50 0 0 50 50 50\n\n"
	if buf.String() != want {
		t.Errorf("unexpected log:\n%q\nwant:\n%q", buf.String(), want)
	}
}

// ─── XLSX ──────────────────────────────────────────────────

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")
	if err := ExportXLSX(path, buildTestResult(t)); err != nil {
		t.Fatalf("ExportXLSX returned error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("cannot reopen workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); strings.Join(got, ",") != "Summary,Boxes,Unplaced" {
		t.Errorf("unexpected sheets %v", got)
	}
	rows, err := f.GetRows(boxesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 boxes, got %d rows", len(rows))
	}
	if rows[1][1] != "A" || rows[3][4] != "300" {
		t.Errorf("unexpected box rows %v", rows)
	}
	unplaced, err := f.GetRows(unplacedSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(unplaced) != 2 || unplaced[1][0] != "X" {
		t.Errorf("unexpected unplaced rows %v", unplaced)
	}
}

func TestExportXLSX_EmptyResult(t *testing.T) {
	if err := ExportXLSX(filepath.Join(t.TempDir(), "empty.xlsx"), model.PackResult{}); err == nil {
		t.Fatal("expected error for empty result, got nil")
	}
}

// ─── PDF ───────────────────────────────────────────────────

func TestExportPDF_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := ExportPDF(path, buildTestResult(t), model.DefaultSettings()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	assertFile(t, path, 500)
}

func TestExportPDF_ManyLayersAndDirectPallet(t *testing.T) {
	res := buildTestResult(t)

	// A direct-mode pallet has boxes but no layers.
	direct := res.Pallets[0]
	direct.Layers = nil
	res.Pallets = append(res.Pallets, direct)

	// Seven layers spill onto a continuation page.
	many := res.Pallets[0]
	for i := 0; i < 5; i++ {
		many.Layers = append(many.Layers, many.Layers[0])
	}
	res.Pallets[0] = many

	path := filepath.Join(t.TempDir(), "many.pdf")
	if err := ExportPDF(path, res, model.DefaultSettings()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	assertFile(t, path, 500)
}

func TestExportPDF_EmptyResult(t *testing.T) {
	err := ExportPDF(filepath.Join(t.TempDir(), "empty.pdf"), model.PackResult{}, model.DefaultSettings())
	if err == nil {
		t.Fatal("expected error for empty result, got nil")
	}
}

func TestPalletViews_GroupsBoxesByHeight(t *testing.T) {
	res := buildTestResult(t)
	p := res.Pallets[0]
	p.Layers = nil

	views := palletViews(p)
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].NumberOfBoxes() != 2 || views[0].Height != 300 {
		t.Errorf("unexpected bottom view %+v", views[0])
	}
}

// ─── Labels ────────────────────────────────────────────────

func TestCollectLabelInfos(t *testing.T) {
	labels := CollectLabelInfos(buildTestResult(t))
	if len(labels) != 1 {
		t.Fatalf("expected 1 label, got %d", len(labels))
	}
	l := labels[0]
	if l.PalletID != "p-1" || l.Index != 1 || l.Of != 1 {
		t.Errorf("unexpected label identity %+v", l)
	}
	if l.BoxCount != 3 || l.Weight != 50 || l.StackHeight != 500 {
		t.Errorf("unexpected label totals %+v", l)
	}

	data, err := l.payload()
	if err != nil {
		t.Fatal(err)
	}
	var decoded LabelInfo
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(decoded.BoxIDs) != 3 {
		t.Errorf("expected box ids in payload, got %v", decoded.BoxIDs)
	}
}

func TestLabelPayload_DropsBoxIDsWhenTooLarge(t *testing.T) {
	info := LabelInfo{PalletID: "p", BoxCount: 500}
	for i := 0; i < 500; i++ {
		info.BoxIDs = append(info.BoxIDs, fmt.Sprintf("box-with-a-long-identifier-%04d", i))
	}
	data, err := info.payload()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) > qrMaxPayload {
		t.Errorf("payload too large: %d bytes", len(data))
	}
	if strings.Contains(string(data), "boxes") {
		t.Error("expected box ids to be dropped")
	}
}

func TestExportLabels_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.pdf")
	if err := ExportLabels(path, buildTestResult(t)); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}
	assertFile(t, path, 500)
}

func TestExportLabels_NoPallets(t *testing.T) {
	if err := ExportLabels(filepath.Join(t.TempDir(), "labels.pdf"), model.PackResult{}); err == nil {
		t.Fatal("expected error for empty result, got nil")
	}
}

// ─── DXF ───────────────────────────────────────────────────

func TestExportDXF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pallet.dxf")
	if err := ExportDXF(path, buildTestResult(t).Pallets[0]); err != nil {
		t.Fatalf("ExportDXF returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"PALLET", "LAYER_01", "LAYER_02", "LINE"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("DXF output missing %q", want)
		}
	}
}

func TestExportDXF_TwelveEdgesPerBlock(t *testing.T) {
	res := buildTestResult(t)
	path := filepath.Join(t.TempDir(), "pallet.dxf")
	if err := ExportDXF(path, res.Pallets[0]); err != nil {
		t.Fatalf("ExportDXF returned error: %v", err)
	}

	d, err := dxf.Open(path)
	if err != nil {
		t.Fatalf("dxf.Open: %v", err)
	}
	lines := 0
	for _, e := range d.Entities() {
		if _, ok := e.(*entity.Line); ok {
			lines++
		}
	}
	// Pallet outline plus one wireframe per box.
	want := 12 * (1 + len(res.Pallets[0].Boxes))
	if lines != want {
		t.Errorf("got %d lines, want %d", lines, want)
	}
}

func TestExportDXF_EmptyPallet(t *testing.T) {
	if err := ExportDXF(filepath.Join(t.TempDir(), "empty.dxf"), model.PalletResult{ID: "p"}); err == nil {
		t.Fatal("expected error for empty pallet, got nil")
	}
}

// ─── WriteAll ──────────────────────────────────────────────

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	paths, err := WriteAll(dir, buildTestResult(t), model.DefaultSettings(), Formats)
	if err != nil {
		t.Fatalf("WriteAll returned error: %v", err)
	}
	for _, name := range []string{"layer_01.csv", "pallet_01.csv", "result.xlsx", "report.pdf", "labels.pdf", "pallet_01.dxf"} {
		assertFile(t, filepath.Join(dir, name), 10)
	}
	if len(paths) != 7 {
		t.Errorf("expected 7 written files, got %v", paths)
	}
}

func TestWriteAll_UnknownFormat(t *testing.T) {
	_, err := WriteAll(t.TempDir(), buildTestResult(t), model.DefaultSettings(), []string{"svg"})
	if err == nil || !strings.Contains(err.Error(), "svg") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}
