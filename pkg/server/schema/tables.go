/* Copyright 2025 Bauhub Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package schema

const (
	// TableCustomers is the customers table
	TableCustomers = "customers"
	// TableInvoices is the invoices table
	TableInvoices = "invoices"
	// TableProjects is the projects table
	TableProjects = "projects"
	// TableEmployees is the employees table
	TableEmployees = "employees"
	// TableVehicles is the vehicle fleet table
	TableVehicles = "vehicles"
	// TableTimeEntries is the time tracking table
	TableTimeEntries = "time_entries"
	// TableTimesheets is the timesheets table
	TableTimesheets = "timesheets"
	// TableTodos is the todos table
	TableTodos = "todos"
	// TableCalendarEvents is the calendar events table
	TableCalendarEvents = "calendar_events"
	// TableServices is the service catalog table
	TableServices = "services"
	// TableSettings is the per-owner settings table, keyed by user_id
	TableSettings = "settings"
)

// SettingsSlices are the independently-updatable slices of the settings
// record. A partial settings update merges into these slices instead of
// overwriting the whole record.
var SettingsSlices = []string{"company", "account", "invoice_config", "dunning_config"}

var tables = []*Table{
	{
		Name:       TableCustomers,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "name", "email", "phone", "address", "notes",
			"created_at", "updated_at",
		},
		JSONColumns: []string{"address"},
	},
	{
		Name:       TableInvoices,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "customer_id", "number", "date", "due_date",
			"items", "payment_plan", "total", "reverse_charge", "paid",
			"created_at", "updated_at",
		},
		JSONColumns: []string{"items", "payment_plan"},
		BoolColumns: []string{"reverse_charge", "paid"},
	},
	{
		Name:       TableProjects,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "customer_id", "name", "description", "address",
			"start_date", "end_date", "completed", "created_at", "updated_at",
		},
		JSONColumns: []string{"address"},
		BoolColumns: []string{"completed"},
	},
	{
		Name:       TableEmployees,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "name", "email", "phone", "personal",
			"bank_details", "hourly_rate", "active", "created_at", "updated_at",
		},
		JSONColumns: []string{"personal", "bank_details"},
		BoolColumns: []string{"active"},
	},
	{
		Name:       TableVehicles,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "name", "license_plate", "inspection_due",
			"mileage", "assigned_to", "created_at", "updated_at",
		},
	},
	{
		Name:       TableTimeEntries,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "employee_id", "project_id", "date", "hours",
			"description", "created_at", "updated_at",
		},
	},
	{
		Name:       TableTimesheets,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "employee_id", "period", "entries", "approved",
			"created_at", "updated_at",
		},
		JSONColumns: []string{"entries"},
		BoolColumns: []string{"approved"},
	},
	{
		Name:       TableTodos,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "title", "description", "due_date", "completed",
			"created_at", "updated_at",
		},
		BoolColumns: []string{"completed"},
	},
	{
		Name:       TableCalendarEvents,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "title", "description", "start_at", "end_at",
			"all_day", "created_at", "updated_at",
		},
		BoolColumns: []string{"all_day"},
	},
	{
		Name:       TableServices,
		PrimaryKey: ColumnID,
		Columns: []string{
			"id", "user_id", "title", "description", "unit", "price",
			"created_at", "updated_at",
		},
	},
	{
		Name:       TableSettings,
		PrimaryKey: ColumnUserID,
		Columns: []string{
			"user_id", "company", "account", "invoice_config", "dunning_config",
			"created_at", "updated_at",
		},
		JSONColumns: []string{"company", "account", "invoice_config", "dunning_config"},
	},
}

var tablesByName map[string]*Table

func init() {
	tablesByName = make(map[string]*Table, len(tables))
	for _, t := range tables {
		t.init()
		tablesByName[t.Name] = t
	}
}

// Tables returns the descriptors for all managed tables in a fixed order
func Tables() []*Table {
	return tables
}

// TableNames returns the names of all managed tables in a fixed order
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	return names
}

// Lookup returns the descriptor for the given table name
func Lookup(name string) (*Table, bool) {
	t, ok := tablesByName[name]
	return t, ok
}
