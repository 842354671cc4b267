package excel

import (
	"strings"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"
)

// ColumnContract lists the headers a roster kind must and may carry.
type ColumnContract struct {
	Required []string
	Optional []string
	Doc      string
}

var contracts = map[model.ImportKind]ColumnContract{
	model.ImportStudents: {
		Required: []string{model.ColStudentName, model.ColNationalID, model.ColStage, model.ColGroup},
		Optional: []string{model.ColStudentPhone, model.ColGuardianPhone, model.ColGuardianPhone2, model.ColGuardianPhone3, model.ColStatus},
		Doc: "الأعمدة المطلوبة: " + strings.Join([]string{model.ColStudentName, model.ColNationalID, model.ColStage, model.ColGroup}, "، ") + "\n" +
			"الأعمدة الاختيارية: " + model.ColStudentPhone + "، " +
			model.ColGuardianPhone + " (أو " + model.ColGuardianPhone2 + " / " + model.ColGuardianPhone3 + ")، " +
			model.ColStatus + " (استئذان أو نشط)",
	},
	model.ImportTeachers: {
		Required: []string{model.ColTeacherName, model.ColTeacherPhone},
		Optional: []string{model.ColSpecialization},
		Doc: "الأعمدة المطلوبة: " + model.ColTeacherName + "، " + model.ColTeacherPhone + "\n" +
			"الأعمدة الاختيارية: " + model.ColSpecialization,
	},
}

func ContractFor(kind model.ImportKind) (ColumnContract, bool) {
	c, ok := contracts[kind]
	return c, ok
}

// ValidateColumns checks the first row's headers against the contract for kind.
// Columns are assumed uniform across rows, so later rows are not inspected.
func ValidateColumns(kind model.ImportKind, rows []model.RosterRow) error {
	contract, ok := contracts[kind]
	if !ok {
		return errors.ErrUnknownImportKind
	}

	if len(rows) == 0 {
		return errors.ErrEmptyFile
	}

	var missing []string
	for _, col := range contract.Required {
		if _, present := rows[0][col]; !present {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return &errors.MissingColumnsError{
			Kind:    string(kind),
			Missing: missing,
			Doc:     contract.Doc,
		}
	}

	return nil
}
