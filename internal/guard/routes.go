package guard

import "strings"

// Navigation route names.
const (
	RouteSignUp              = "signUp"
	RouteLogin               = "login"
	RouteDashboard           = "dashboard"
	RouteDashboardIndex      = "dashboardIndex"
	RouteInventory           = "inventory"
	RouteDumps               = "Dumps"
	RouteInventoryDump       = "inventoryDump"
	RouteDumpDetails         = "dumpDetails"
	RouteTrackingDump        = "trackingDump"
	RouteTrackingDumpDetails = "trackingDumpDetails"
	RouteReport              = "report"
	RouteReportMenu          = "reportMenu"
	RouteInventoryReport     = "inventoryReport"
	RouteTrackingReport      = "trackingReport"
	RouteTracking            = "tracking"
	RouteUsers               = "users"
	RouteForgotPassword      = "forgotPassword"
	RouteUpdatePassword      = "updatePassword"
)

// Route is a named navigation route. Elevated routes are open to
// administrators only.
type Route struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Parent   string `json:"parent,omitempty"`
	Elevated bool   `json:"elevated"`
}

var routes = []Route{
	{Name: RouteSignUp, Path: "/", Elevated: true},
	{Name: RouteLogin, Path: "/login"},
	{Name: RouteDashboard, Path: "/dashboard"},
	{Name: RouteDashboardIndex, Path: "/dashboard", Parent: RouteDashboard},
	{Name: RouteInventory, Path: "/dashboard/inventory", Parent: RouteDashboard},
	{Name: RouteDumps, Path: "/dashboard/dump", Parent: RouteDashboard},
	{Name: RouteInventoryDump, Path: "/dashboard/dump/inventoryDump", Parent: RouteDashboard},
	{Name: RouteDumpDetails, Path: "/dashboard/dump/inventory/{id}", Parent: RouteDashboard},
	{Name: RouteTrackingDump, Path: "/dashboard/dump/trackingDump", Parent: RouteDashboard},
	{Name: RouteTrackingDumpDetails, Path: "/dashboard/dump/trackingDump/{id}", Parent: RouteDashboard},
	{Name: RouteReport, Path: "/dashboard/report", Parent: RouteDashboard},
	{Name: RouteReportMenu, Path: "/dashboard/report", Parent: RouteReport},
	{Name: RouteInventoryReport, Path: "/dashboard/report/inventory-report", Parent: RouteReport},
	{Name: RouteTrackingReport, Path: "/dashboard/report/tracking-report", Parent: RouteReport},
	{Name: RouteTracking, Path: "/dashboard/tracking", Parent: RouteDashboard},
	{Name: RouteUsers, Path: "/dashboard/users", Parent: RouteDashboard, Elevated: true},
	{Name: RouteForgotPassword, Path: "/forgot-password"},
	{Name: RouteUpdatePassword, Path: "/update-password"},
}

// Routes returns every navigation route in declaration order.
func Routes() []Route {
	return append([]Route{}, routes...)
}

// Lookup returns the route named name.
func Lookup(name string) (Route, bool) {
	for _, r := range routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Pages returns one route per distinct path. Where a parent and its index
// child share a path, the child wins since it is the page actually shown.
func Pages() []Route {
	index := make(map[string]int)
	var pages []Route
	for _, r := range routes {
		if i, ok := index[r.Path]; ok {
			pages[i] = r
			continue
		}
		index[r.Path] = len(pages)
		pages = append(pages, r)
	}
	return pages
}

// URL fills the {param} placeholders of the route path.
func (r Route) URL(params map[string]string) string {
	path := r.Path
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", v)
	}
	return path
}
