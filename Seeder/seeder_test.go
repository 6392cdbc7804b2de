package Seeder

import (
	"testing"

	"ClinOps/DMBot"
	"ClinOps/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestInitDomainData_SeedsEmptyDomains(t *testing.T) {
	db, err := Models.OpenInMemory("seeder_init")
	require.NoError(t, err)

	opts := Options{Studies: []string{"STUDY-001"}, SubjectsPerStudy: 5, Seed: 42}
	inserted, err := InitDomainData(db, opts)
	require.NoError(t, err)

	// one DM row per subject
	assert.Equal(t, 5, inserted["DM"])
	assert.GreaterOrEqual(t, inserted["VS"], 10)

	var total int64
	require.NoError(t, db.Model(&Models.DomainRecord{}).Count(&total).Error)
	sum := 0
	for _, n := range inserted {
		sum += n
	}
	assert.Equal(t, int64(sum), total)

	var dm Models.DomainRecord
	require.NoError(t, db.Where("domain = ?", "DM").First(&dm).Error)
	assert.Equal(t, "STUDY-001", dm.StudyID)
	assert.Equal(t, "STUDY-001", dm.Data["STUDYID"])
	assert.Contains(t, dm.Data, "SEX")
	assert.Contains(t, dmCountries, dm.Data["COUNTRY"])
}

func TestInitDomainData_SkipsPopulatedDomains(t *testing.T) {
	db, err := Models.OpenInMemory("seeder_skip")
	require.NoError(t, err)

	opts := Options{Studies: []string{"STUDY-002"}, SubjectsPerStudy: 3, Seed: 7}
	_, err = InitDomainData(db, opts)
	require.NoError(t, err)

	var before int64
	require.NoError(t, db.Model(&Models.DomainRecord{}).Count(&before).Error)

	again, err := InitDomainData(db, opts)
	require.NoError(t, err)
	assert.Empty(t, again)

	var after int64
	require.NoError(t, db.Model(&Models.DomainRecord{}).Count(&after).Error)
	assert.Equal(t, before, after)
}

func TestInitDomainData_RowsFeedDuplicateCheck(t *testing.T) {
	db, err := Models.OpenInMemory("seeder_refs")
	require.NoError(t, err)

	_, err = InitDomainData(db, Options{Studies: []string{"STUDY-003"}, SubjectsPerStudy: 4, Seed: 3})
	require.NoError(t, err)

	var rows []Models.DomainRecord
	require.NoError(t, db.Where("domain = ?", "VS").Find(&rows).Error)

	// every subject has at least two vital signs rows
	groups := DMBot.FindDuplicateRecords(Models.References(rows))
	assert.Len(t, groups, 4)
	for _, g := range groups {
		assert.GreaterOrEqual(t, g.Count, 2)
	}
}

func TestPopulateDomainData(t *testing.T) {
	db, err := Models.OpenInMemory("seeder_populate")
	require.NoError(t, err)

	sum, err := PopulateDomainData(db, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Users)
	assert.Equal(t, 3, sum.Trials)
	assert.Equal(t, 7, sum.Sites)
	assert.Equal(t, 5, sum.Tasks)
	assert.NotZero(t, sum.Signals)
	assert.Empty(t, sum.Skipped)

	var admin Models.User
	require.NoError(t, db.Where("email = ?", DefaultAdminEmail).First(&admin).Error)
	assert.Equal(t, Models.PermissionAdmin, admin.Permission)
	assert.NoError(t, bcrypt.CompareHashAndPassword(admin.Password, []byte(DefaultAdminPassword)))

	var onco Models.Trial
	require.NoError(t, db.Preload("Sites").Where("protocol_number = ?", "ONCO-301").First(&onco).Error)
	assert.Len(t, onco.Sites, 4)
	assert.Equal(t, []string{"US", "DE", "FR", "JP"}, onco.CountryList())
}

func TestPopulateDomainData_SkipsNonEmptyTables(t *testing.T) {
	db, err := Models.OpenInMemory("seeder_populate_twice")
	require.NoError(t, err)

	_, err = PopulateDomainData(db, nil)
	require.NoError(t, err)

	sum, err := PopulateDomainData(db, nil)
	require.NoError(t, err)
	assert.Zero(t, sum.Users+sum.Trials+sum.Tasks+sum.Signals)
	assert.ElementsMatch(t, []string{"users", "trials", "tasks", "signal_detections"}, sum.Skipped)

	var trials int64
	require.NoError(t, db.Model(&Models.Trial{}).Count(&trials).Error)
	assert.EqualValues(t, 3, trials)
}
