package viewer

import (
	"html/template"
	"net/http"

	"github.com/kilianp07/evload/core/chart"
	"github.com/kilianp07/evload/core/model"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>EV Load Simulation</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
#status { margin: 1rem 0; }
#status.error { color: #b00020; }
img { max-width: 100%; }
</style>
</head>
<body>
<h1>EV Load Simulation</h1>
<form id="upload" method="post" action="/api/submit" enctype="multipart/form-data">
{{range .Slots}}<p><label>{{.Label}} <input type="file" name="{{.Field}}" accept=".csv,text/csv"></label></p>
{{end}}<button type="submit">Upload and Run Simulation</button>
</form>
<div id="status"></div>
<p><a href="/download">Download raw results</a> | <a href="/api/export?format=csv">Export CSV</a></p>
<img id="chart" alt="{{.ManagedName}} vs {{.UnmanagedName}}"{{if .HasDataset}} src="/api/chart"{{end}}>
<script>
document.getElementById("upload").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const status = document.getElementById("status");
  status.className = "";
  status.textContent = "Running simulation...";
  const res = await fetch("/api/submit", { method: "POST", body: new FormData(ev.target) });
  const body = await res.json();
  if (!res.ok) {
    status.className = "error";
    status.textContent = body.error;
    return;
  }
  status.textContent = "Run " + body.run_id + ": " + body.rows + " samples";
  document.getElementById("chart").src = "/api/chart?t=" + Date.now();
});
</script>
</body>
</html>
`))

type slotField struct {
	Label string
	Field string
}

type indexData struct {
	Slots         []slotField
	HasDataset    bool
	ManagedName   string
	UnmanagedName string
}

var slotLabels = map[model.Slot]string{
	model.SlotVehicles: "Vehicles",
	model.SlotRoutes:   "Routes",
	model.SlotBaseLoad: "Base load",
}

func (h *Handler) index(w http.ResponseWriter, _ *http.Request) {
	data := indexData{
		ManagedName:   chart.ManagedSeriesName,
		UnmanagedName: chart.UnmanagedSeriesName,
	}
	_, data.HasDataset = h.surface.Current()
	for _, s := range model.Slots {
		data.Slots = append(data.Slots, slotField{Label: slotLabels[s], Field: s.PartName()})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		h.log.Errorf("render index: %v", err)
	}
}
