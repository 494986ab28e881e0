package web

import (
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Templates
var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	portfolio := s.portfolio()

	orders, err := s.orders.ListOrders(r.Context(), 20)
	if err != nil {
		s.logger.Error("Failed to list orders for dashboard", zap.Error(err))
	}

	data := map[string]interface{}{
		"Portfolio": portfolio,
		"Orders":    orders,
		"Generated": time.Now().UTC().Format("2006-01-02 15:04:05 MST"),
	}

	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
	}
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="30">
<title>Paper Fund</title>
<style>
body { font-family: sans-serif; margin: 2em; background: #f4f4f4; }
h1 { margin-bottom: 0; }
.generated { color: #777; font-size: 0.8em; }
.halted { background: #c0392b; color: #fff; padding: 0.6em 1em; border-radius: 4px; margin: 1em 0; }
.cards { display: flex; gap: 1em; margin: 1em 0; }
.card { background: #fff; border: 1px solid #ddd; border-radius: 4px; padding: 1em; min-width: 10em; }
.card .label { color: #777; font-size: 0.8em; text-transform: uppercase; }
.card .value { font-size: 1.4em; margin-top: 0.2em; }
table { border-collapse: collapse; background: #fff; width: 100%; margin-bottom: 2em; }
th, td { border: 1px solid #ddd; padding: 0.4em 0.8em; text-align: right; }
th { background: #eee; }
td:first-child, th:first-child { text-align: left; }
.pos { color: #27ae60; }
.neg { color: #c0392b; }
</style>
</head>
<body>
<h1>Paper Fund</h1>
<p class="generated">Generated {{.Generated}}</p>
{{if .Portfolio.Halted}}<div class="halted">TRADING HALTED: invariant violation, operator resume required</div>{{end}}
<div class="cards">
<div class="card"><div class="label">Equity</div><div class="value">${{printf "%.2f" .Portfolio.Equity}}</div></div>
<div class="card"><div class="label">Cash</div><div class="value">${{printf "%.2f" .Portfolio.Cash}}</div></div>
<div class="card"><div class="label">Positions Value</div><div class="value">${{printf "%.2f" .Portfolio.PositionsValue}}</div></div>
<div class="card"><div class="label">Total P/L</div><div class="value {{if ge .Portfolio.TotalPL 0.0}}pos{{else}}neg{{end}}">${{printf "%.2f" .Portfolio.TotalPL}} ({{printf "%.2f" .Portfolio.TotalPLPercent}}%)</div></div>
</div>

<h2>Open Positions</h2>
{{if .Portfolio.Positions}}
<table>
<tr><th>Symbol</th><th>Qty</th><th>Avg Entry</th><th>Last Price</th><th>Market Value</th><th>Unrealized P/L</th></tr>
{{range .Portfolio.Positions}}
<tr><td>{{.Symbol}}</td><td>{{.Quantity}}</td><td>{{printf "%.2f" .AvgEntryPrice}}</td><td>{{printf "%.2f" .CurrentPrice}}</td><td>{{printf "%.2f" .MarketValue}}</td><td class="{{if ge .UnrealizedPL 0.0}}pos{{else}}neg{{end}}">{{printf "%.2f" .UnrealizedPL}} ({{printf "%.2f" .UnrealizedPLPercent}}%)</td></tr>
{{end}}
</table>
{{else}}<p>No open positions.</p>{{end}}

<h2>Recent Orders</h2>
{{if .Orders}}
<table>
<tr><th>ID</th><th>Symbol</th><th>Side</th><th>Qty</th><th>Status</th><th>Fill Price</th><th>Updated</th></tr>
{{range .Orders}}
<tr><td>{{.ID}}</td><td>{{.Symbol}}</td><td>{{.Side}}</td><td>{{.Quantity}}</td><td>{{.Status}}</td><td>{{if .FilledQuantity}}{{printf "%.2f" .FilledAvgPrice}}{{else}}-{{end}}</td><td>{{.UpdatedAt.Format "2006-01-02 15:04"}}</td></tr>
{{end}}
</table>
{{else}}<p>No orders yet.</p>{{end}}
</body>
</html>
`
