package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var errAuthorNotStaff = errors.New("the author must be an admin or a trainer")

type (
	seedFile struct {
		Courses []seedCourse `yaml:"courses"`
	}

	seedCourse struct {
		Code        string       `yaml:"code"`
		Title       string       `yaml:"title"`
		Description string       `yaml:"description"`
		Published   bool         `yaml:"published"`
		Modules     []seedModule `yaml:"modules"`
	}

	seedModule struct {
		Title       string        `yaml:"title"`
		Description string        `yaml:"description"`
		Lectures    []seedLecture `yaml:"lectures"`
	}

	seedLecture struct {
		Title string `yaml:"title"`
		Body  string `yaml:"body"`
	}
)

func readSeedFile(path string) (seedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return seedFile{}, errors.Wrap(err, "opening seed file")
	}
	defer f.Close()

	var sf seedFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return seedFile{}, errors.Wrap(err, "decoding seed file")
	}
	return sf, nil
}

// seed creates the courses of the YAML file at path, with their modules and lectures in file order.
// Courses whose code already exists are skipped.
func (cli *commandLine) seed(ctx context.Context, path, authorUname string) (int, error) {
	sf, err := readSeedFile(path)
	if err != nil {
		return 0, err
	}

	author, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{authorUname}})
	if err != nil {
		return 0, errors.Wrap(err, "finding author")
	}
	if !author.IsAdmin() && !author.IsTrainer() {
		return 0, errAuthorNotStaff
	}

	created := 0
	for i, sc := range sf.Courses {
		nc := course.NewCourse{Code: sc.Code, Title: sc.Title, Description: sc.Description, IsPublished: sc.Published}
		if err := nc.Validate(cli.validate); err != nil {
			return created, errors.Wrapf(err, "validating course #%d", i+1)
		}
		if err := cli.courseSvc.CheckCodeUniqueness(ctx, nc.Code, ""); err != nil {
			if vErr, ok := errors.Cause(err).(*core.ValidationError); ok && errors.Cause(vErr.Err) == course.ErrCodeExists {
				cli.logger.Info(fmt.Sprintf("course %s exists, skipping", nc.Code))
				continue
			}
			return created, errors.Wrap(err, "checking course code")
		}

		c, err := cli.courseSvc.Create(ctx, author, nc)
		if err != nil {
			return created, errors.Wrapf(err, "creating course %s", nc.Code)
		}
		for j, sm := range sc.Modules {
			nm := course.NewModule{Title: sm.Title, Description: sm.Description}
			if err := nm.Validate(cli.validate); err != nil {
				return created, errors.Wrapf(err, "validating module #%d of %s", j+1, nc.Code)
			}
			m, err := cli.courseSvc.CreateModule(ctx, c.ID, nm)
			if err != nil {
				return created, errors.Wrapf(err, "creating module %q", nm.Title)
			}
			for k, sl := range sm.Lectures {
				nl := course.NewLecture{Title: sl.Title, Body: sl.Body}
				if err := nl.Validate(cli.validate); err != nil {
					return created, errors.Wrapf(err, "validating lecture #%d of %q", k+1, nm.Title)
				}
				if _, err := cli.courseSvc.CreateLecture(ctx, m.ID, nl); err != nil {
					return created, errors.Wrapf(err, "creating lecture %q", nl.Title)
				}
			}
		}
		cli.logger.Info(fmt.Sprintf("course %s created", c.Code))
		created++
	}
	return created, nil
}
