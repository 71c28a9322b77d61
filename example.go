package godb

import (
	"fmt"

	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
)

const (
	ExampleStudents    = 200
	ExampleCourses     = 30
	ExampleEnrollments = 3 * ExampleStudents
)

var (
	exampleMajors      = []string{"Computer Science", "Mathematics", "Physics", "Economics", "History"}
	exampleDepartments = []string{"EECS", "Math", "Physics", "Econ", "History", "Stats"}
)

// ExampleSchemas returns the schemas of the example tables, keyed by table name.
func ExampleSchemas() map[string]*catalog.Schema {
	return map[string]*catalog.Schema{
		"Students": catalog.NewSchema(
			[]string{"sid", "name", "major", "gpa"},
			[]common.Type{common.IntType, common.StringType, common.StringType, common.FloatType}),
		"Courses": catalog.NewSchema(
			[]string{"cid", "name", "department"},
			[]common.Type{common.IntType, common.StringType, common.StringType}),
		"Enrollments": catalog.NewSchema(
			[]string{"sid", "cid"},
			[]common.Type{common.IntType, common.IntType}),
	}
}

// LoadExampleData creates and fills the Students, Courses and Enrollments tables. The data is
// generated deterministically, so every load yields the same rows. If Students already exists the
// database is assumed to be loaded and nothing is done.
func LoadExampleData(db *Database) error {
	schemas := ExampleSchemas()
	if err := db.CreateTable("Students", schemas["Students"]); err != nil {
		if common.IsErrorCode(err, common.DuplicateObjectError) {
			return nil
		}
		return err
	}
	for _, name := range []string{"Courses", "Enrollments"} {
		if err := db.CreateTable(name, schemas[name]); err != nil {
			return err
		}
	}

	for sid := int32(1); sid <= ExampleStudents; sid++ {
		// gpa cycles through 2.0 .. 4.0 in steps of 0.1
		gpa := 2.0 + float32((sid*7)%21)/10
		err := db.Insert("Students",
			common.NewIntValue(sid),
			common.NewStringValue(fmt.Sprintf("Student %d", sid)),
			common.NewStringValue(exampleMajors[int(sid)%len(exampleMajors)]),
			common.NewFloatValue(gpa))
		if err != nil {
			return err
		}
	}
	for cid := int32(1); cid <= ExampleCourses; cid++ {
		dept := exampleDepartments[int(cid)%len(exampleDepartments)]
		err := db.Insert("Courses",
			common.NewIntValue(cid),
			common.NewStringValue(fmt.Sprintf("%s %d", dept, 100+cid)),
			common.NewStringValue(dept))
		if err != nil {
			return err
		}
	}
	for i := int32(0); i < ExampleEnrollments; i++ {
		sid := i%ExampleStudents + 1
		cid := (i*11)%ExampleCourses + 1
		if err := db.Insert("Enrollments", common.NewIntValue(sid), common.NewIntValue(cid)); err != nil {
			return err
		}
	}
	db.Log.Info("loaded example data",
		"students", ExampleStudents, "courses", ExampleCourses, "enrollments", ExampleEnrollments)
	return nil
}
