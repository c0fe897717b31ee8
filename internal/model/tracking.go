package model

// TrackingDump is a named collection point. ItemCount, TotalContainers and
// LastUpdated are derived from deliveries and never persisted.
type TrackingDump struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	ItemCount       int     `json:"itemCount"`
	TotalContainers int     `json:"totalContainers"`
	LastUpdated     *string `json:"lastUpdated"`
}

// TrackingDumpRow is the persisted shape of a TrackingDump (table tracking_dumps).
type TrackingDumpRow struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TrackingDelivery is one container delivery (table tracking_batch_data).
type TrackingDelivery struct {
	ID                  int64  `json:"id,omitempty"`
	BatchID             string `json:"batch_id"`
	Dump                string `json:"dump"`
	Date                string `json:"date"`
	ContainerNo         string `json:"container_no"`
	Driver              string `json:"driver"`
	ContainersDelivered int    `json:"containers_delivered"`
	VesselDetails       string `json:"vessel_details"`
	Comments            string `json:"comments"`
	CreatedAt           string `json:"created_at,omitempty"`
}

// DeliveryPatch holds the fields to change on a delivery. Nil fields are left untouched.
type DeliveryPatch struct {
	Dump                *string `json:"dump,omitempty"`
	Date                *string `json:"date,omitempty"`
	ContainerNo         *string `json:"container_no,omitempty"`
	Driver              *string `json:"driver,omitempty"`
	ContainersDelivered *int    `json:"containers_delivered,omitempty"`
	VesselDetails       *string `json:"vessel_details,omitempty"`
	Comments            *string `json:"comments,omitempty"`
}

// Batch groups deliveries created together (table tracking_batches).
type Batch struct {
	ID              int64  `json:"id,omitempty"`
	BatchID         string `json:"batch_id"`
	BatchName       string `json:"batch_name"`
	CreatedAt       string `json:"created_at"`
	CreatedBy       string `json:"created_by"`
	Status          string `json:"status"`
	Description     string `json:"description"`
	TotalContainers int    `json:"total_containers"`
}

// NewDumpInput describes a dump created together with its first delivery.
type NewDumpInput struct {
	Name                string `json:"name"`
	ContainersDelivered int    `json:"containersDelivered"`
	Date                string `json:"date"`
	ContainerNo         string `json:"containerNo"`
	Driver              string `json:"driver"`
	VesselDetails       string `json:"vesselDetails"`
	Comments            string `json:"comments"`
	Description         string `json:"description"`
	CreatedBy           string `json:"createdBy"`
}

// DumpStatistics summarises the deliveries of a single dump.
type DumpStatistics struct {
	TotalDeliveries   int                `json:"totalDeliveries"`
	TotalContainers   int                `json:"totalContainers"`
	UniqueDrivers     int                `json:"uniqueDrivers"`
	MonthlyDeliveries int                `json:"monthlyDeliveries"`
	Deliveries        []TrackingDelivery `json:"deliveries"`
}

// MonthGroup is the set of deliveries in one calendar month.
type MonthGroup struct {
	Key             string             `json:"key"`
	MonthName       string             `json:"monthName"`
	Deliveries      []TrackingDelivery `json:"deliveries"`
	TotalContainers int                `json:"totalContainers"`
	UniqueDrivers   int                `json:"uniqueDrivers"`
}
