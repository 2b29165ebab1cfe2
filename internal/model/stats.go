package model

// DashboardStats is the aggregate view shown on the curator dashboard.
type DashboardStats struct {
	ByStatus        map[Status]int   `json:"by_status"`
	ByCategory      map[Category]int `json:"by_category"`
	Overdue         int              `json:"overdue"`
	DueThisWeek     int              `json:"due_this_week"`
	OpenHours       float64          `json:"open_hours"`
	ActiveProjects  []Project        `json:"active_projects"`
	TotalTasks      int              `json:"total_tasks"`
	CompletionRatio float64          `json:"completion_ratio"`
}
