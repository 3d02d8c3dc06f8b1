// Package navigation maps roles to the dashboard views they may open.
package navigation

import "unismart/internal/identity"

// Tab is one dashboard view.
type Tab struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type entry struct {
	tab   Tab
	roles []identity.Role
}

var everyone = []identity.Role{identity.RoleAdmin, identity.RoleDoctor, identity.RoleTA, identity.RoleStudent}

var tabs = []entry{
	{Tab{"dashboard", "لوحة التحكم"}, everyone},
	{Tab{"admin_users", "إدارة المستخدمين"}, []identity.Role{identity.RoleAdmin}},
	{Tab{"admin_schedule", "إدارة الجداول"}, []identity.Role{identity.RoleAdmin}},
	{Tab{"attendance_records", "سجلات المتابعة"}, []identity.Role{identity.RoleAdmin}},
	{Tab{"virtual", "الفصول الافتراضية"}, everyone},
	{Tab{"attendance", "تسجيل الحضور"}, everyone},
	{Tab{"reports", "التقارير والتحليلات"}, []identity.Role{identity.RoleAdmin, identity.RoleDoctor}},
	{Tab{"profile", "الملف الشخصي"}, everyone},
}

// For returns the tabs visible to role, in menu order.
func For(role identity.Role) []Tab {
	out := []Tab{}
	for _, e := range tabs {
		for _, r := range e.roles {
			if r == role {
				out = append(out, e.tab)
				break
			}
		}
	}
	return out
}

// Allows reports whether role may open tab id.
func Allows(role identity.Role, id string) bool {
	for _, t := range For(role) {
		if t.ID == id {
			return true
		}
	}
	return false
}
