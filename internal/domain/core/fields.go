package core

import "hrms/internal/domain/access"

// FilterEmployeeFields strips data the actor may not see. HR staff and the
// employee keep decrypted national ID and bank account; everyone else loses
// them along with the salary.
func FilterEmployeeFields(emp *Employee, actor access.Actor) {
	if actor.IsHR() || actor.IsEmployee(emp.ID) {
		return
	}
	emp.NationalID = ""
	emp.BankAccount = ""
	emp.Salary = nil
}
