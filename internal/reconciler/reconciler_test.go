// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package reconciler_test

import (
	"context"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/canonical/serial-vault-charm/core/status"
	"github.com/canonical/serial-vault-charm/internal/charmconfig"
	"github.com/canonical/serial-vault-charm/internal/deploy"
	"github.com/canonical/serial-vault-charm/internal/hookenv/hookenvtesting"
	"github.com/canonical/serial-vault-charm/internal/nrpe"
	"github.com/canonical/serial-vault-charm/internal/reconciler"
	"github.com/canonical/serial-vault-charm/internal/settings"
)

type reconcilerSuite struct {
	testing.IsolationSuite

	ctx        *hookenvtesting.FakeContext
	service    *MockServiceController
	settings   *MockSettingsWriter
	superusers *MockSuperuserProvisioner
	nrpe       *MockNRPEUpdater
	strategy   *MockStrategy
	entropy    *testing.Stub
}

var _ = gc.Suite(&reconcilerSuite{})

func (s *reconcilerSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.ctx = hookenvtesting.NewFakeContext("serial-vault/0")
	s.entropy = &testing.Stub{}
}

func (s *reconcilerSuite) setupMocks(c *gc.C) *gomock.Controller {
	ctrl := gomock.NewController(c)
	s.service = NewMockServiceController(ctrl)
	s.settings = NewMockSettingsWriter(ctrl)
	s.superusers = NewMockSuperuserProvisioner(ctrl)
	s.nrpe = NewMockNRPEUpdater(ctrl)
	s.strategy = NewMockStrategy(ctrl)
	return ctrl
}

func (s *reconcilerSuite) newReconciler(c *gc.C) *reconciler.Reconciler {
	r, err := reconciler.New(reconciler.Config{
		Context:    s.ctx,
		Service:    s.service,
		Settings:   s.settings,
		Superusers: s.superusers,
		NRPE:       s.nrpe,
		NewStrategy: func(charmconfig.ServiceConfig) deploy.Strategy {
			return s.strategy
		},
		SeedEntropy: func() error {
			s.entropy.AddCall("SeedEntropy")
			return s.entropy.NextErr()
		},
	})
	c.Assert(err, jc.ErrorIsNil)
	return r
}

func (s *reconcilerSuite) handle(c *gc.C, hook string) error {
	return s.newReconciler(c).Handle(context.Background(), hook)
}

func (s *reconcilerSuite) setState(st reconciler.State) {
	s.ctx.State[reconciler.StateKey] = string(st)
}

func (s *reconcilerSuite) state() reconciler.State {
	return reconciler.State(s.ctx.State[reconciler.StateKey])
}

func (s *reconcilerSuite) addDatabase(state string) {
	rel := s.ctx.AddRelation("database:1", "database")
	rel.Units["postgresql/0"] = map[string]interface{}{
		"database": "serialvault",
		"state":    state,
		"host":     "10.0.0.5",
		"port":     "5432",
		"user":     "juju_serialvault",
		"password": "s3cret",
	}
}

func (s *reconcilerSuite) strategyIs(name string, needsEntropy, restartAfterUpgrade bool) {
	s.strategy.EXPECT().Name().Return(name).AnyTimes()
	s.strategy.EXPECT().NeedsEntropy().Return(needsEntropy).AnyTimes()
	s.strategy.EXPECT().RestartAfterUpgrade().Return(restartAfterUpgrade).AnyTimes()
}

func (s *reconcilerSuite) expectConfigure() *settings.Params {
	var written settings.Params
	s.settings.EXPECT().Write(gomock.Any()).DoAndReturn(func(p settings.Params) error {
		written = p
		return nil
	})
	s.service.EXPECT().WriteEnvironment(gomock.Any(), gomock.Any()).Return(false, nil)
	s.service.EXPECT().Restart(gomock.Any()).Return(nil)
	return &written
}

func (s *reconcilerSuite) TestInvalidConfig(c *gc.C) {
	_, err := reconciler.New(reconciler.Config{Context: s.ctx})
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
}

func (s *reconcilerSuite) TestInstall(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.ctx.ConfigValues["environment_variables"] = "GOPATH=/srv/go"
	s.strategyIs("package", false, true)
	s.strategy.EXPECT().Install(gomock.Any()).Return(nil)
	s.service.EXPECT().WriteEnvironment(gomock.Any(), map[string]string{"GOPATH": "/srv/go"}).Return(true, nil)
	s.service.EXPECT().Enable(gomock.Any()).Return(nil)

	c.Assert(s.handle(c, "install"), jc.ErrorIsNil)

	c.Check(s.state(), gc.Equals, reconciler.Available)
	c.Check(s.ctx.LastStatus(), jc.DeepEquals, hookenvtesting.StatusInfo{
		Status: status.Maintenance, Message: "Waiting for database",
	})
	c.Check(s.ctx.OpenedPorts, jc.DeepEquals, set.NewStrings("8080/tcp"))
	s.entropy.CheckNoCalls(c)
}

func (s *reconcilerSuite) TestInstallSeedsEntropy(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.ctx.ConfigValues["tagged_release"] = "2.1.0"
	s.strategyIs("source", true, false)
	s.strategy.EXPECT().Install(gomock.Any()).Return(nil)
	s.service.EXPECT().WriteEnvironment(gomock.Any(), gomock.Any()).Return(true, nil)
	s.service.EXPECT().Enable(gomock.Any()).Return(nil)

	c.Assert(s.handle(c, "install"), jc.ErrorIsNil)
	s.entropy.CheckCallNames(c, "SeedEntropy")
}

func (s *reconcilerSuite) TestInstallIsIdempotent(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Available)

	c.Assert(s.handle(c, "install"), jc.ErrorIsNil)
	c.Assert(s.handle(c, "install"), jc.ErrorIsNil)

	s.ctx.CheckCallNames(c, "StateGet", "StateGet")
	c.Check(s.state(), gc.Equals, reconciler.Available)
}

func (s *reconcilerSuite) TestInstallFailure(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.strategyIs("package", false, true)
	s.strategy.EXPECT().Install(gomock.Any()).Return(errors.New("apt-get install: exit status 100"))

	err := s.handle(c, "install")
	c.Assert(err, gc.ErrorMatches, "apt-get install: exit status 100")
	c.Check(s.ctx.State, gc.HasLen, 0)
}

func (s *reconcilerSuite) TestConfigChangedNotInstalled(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.addDatabase("master")

	c.Assert(s.handle(c, "config-changed"), jc.ErrorIsNil)
	s.ctx.CheckCallNames(c, "StateGet")
}

func (s *reconcilerSuite) TestConfigChangedWithoutDatabase(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Available)

	c.Assert(s.handle(c, "config-changed"), jc.ErrorIsNil)

	s.ctx.CheckCallNames(c, "StateGet", "Config", "RelationIDs", "RelationIDs")
	c.Check(s.ctx.OpenedPorts.IsEmpty(), jc.IsTrue)
	c.Check(s.state(), gc.Equals, reconciler.Available)
}

func (s *reconcilerSuite) TestConfigChangedDatabaseNotReady(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Available)
	s.addDatabase("recovery")

	c.Assert(s.handle(c, "config-changed"), jc.ErrorIsNil)

	c.Check(s.ctx.LastStatus(), jc.DeepEquals, hookenvtesting.StatusInfo{
		Status: status.Maintenance, Message: "Waiting for database",
	})
	c.Check(s.ctx.OpenedPorts.IsEmpty(), jc.IsTrue)
	c.Check(s.state(), gc.Equals, reconciler.Available)
}

func (s *reconcilerSuite) TestConfigChangedActivates(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Available)
	s.addDatabase("master")
	s.ctx.ConfigValues["service_type"] = "admin"
	s.ctx.ConfigValues["keystore_secret"] = "ks"
	written := s.expectConfigure()

	c.Assert(s.handle(c, "config-changed"), jc.ErrorIsNil)

	c.Check(written.ServiceType, gc.Equals, charmconfig.Admin)
	c.Check(written.KeystoreSecret, gc.Equals, "ks")
	c.Check(written.Datasource(), gc.Equals,
		"dbname=serialvault host=10.0.0.5 port=5432 user=juju_serialvault password=s3cret sslmode=disable")
	c.Check(s.ctx.OpenedPorts, jc.DeepEquals, set.NewStrings("8081/tcp"))
	c.Check(s.ctx.LastStatus().Status, gc.Equals, status.Active)
	c.Check(s.state(), gc.Equals, reconciler.Active)
}

func (s *reconcilerSuite) TestConfigChangedSuperuserFailuresAreSwallowed(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Active)
	s.addDatabase("standalone")
	s.ctx.ConfigValues["enable_user_auth"] = true
	s.ctx.ConfigValues["superusers"] = "alice, bob"
	s.expectConfigure()
	s.superusers.EXPECT().Ensure([]string{"alice", "bob"}).Return([]string{"bob"})

	c.Assert(s.handle(c, "config-changed"), jc.ErrorIsNil)
	c.Check(s.state(), gc.Equals, reconciler.Active)
	c.Check(s.ctx.LastStatus().Status, gc.Equals, status.Active)
}

func (s *reconcilerSuite) TestConfigChangedSkipsSuperusersWithoutAuth(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Active)
	s.addDatabase("master")
	s.ctx.ConfigValues["superusers"] = "alice"
	s.expectConfigure()

	c.Assert(s.handle(c, "config-changed"), jc.ErrorIsNil)
}

func (s *reconcilerSuite) TestConfigChangedRestartFailure(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Available)
	s.addDatabase("master")
	s.settings.EXPECT().Write(gomock.Any()).Return(nil)
	s.service.EXPECT().WriteEnvironment(gomock.Any(), gomock.Any()).Return(false, nil)
	s.service.EXPECT().Restart(gomock.Any()).Return(errors.New(`failed to restart for service "serial-vault"`))

	err := s.handle(c, "config-changed")
	c.Assert(err, gc.ErrorMatches, `failed to restart for service "serial-vault"`)
	c.Check(s.state(), gc.Equals, reconciler.Available)
}

func (s *reconcilerSuite) TestConfigChangedRefreshesNRPE(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Active)
	s.addDatabase("master")
	s.ctx.AddRelation("nrpe-external-master:7", nrpe.Endpoint)
	s.ctx.ConfigValues["nagios_check_http_params"] = "-H localhost -p 8080"
	s.expectConfigure()
	s.nrpe.EXPECT().Update(gomock.Any(), "juju", []nrpe.Check{nrpe.VhostCheck("-H localhost -p 8080")}).Return(nil)

	c.Assert(s.handle(c, "config-changed"), jc.ErrorIsNil)
}

func (s *reconcilerSuite) TestDatabaseRelationJoined(c *gc.C) {
	defer s.setupMocks(c).Finish()
	rel := s.ctx.AddRelation("database:1", "database")
	s.ctx.CurrentRel = "database:1"

	c.Assert(s.handle(c, "database-relation-joined"), jc.ErrorIsNil)
	c.Check(rel.Local, jc.DeepEquals, map[string]string{"database": "serialvault"})
}

func (s *reconcilerSuite) TestDatabaseRelationChanged(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Available)
	s.addDatabase("master")
	s.ctx.CurrentRel = "database:1"
	s.expectConfigure()

	c.Assert(s.handle(c, "database-relation-changed"), jc.ErrorIsNil)
	c.Check(s.state(), gc.Equals, reconciler.Active)
	c.Check(s.ctx.OpenedPorts, jc.DeepEquals, set.NewStrings("8080/tcp"))
}

func (s *reconcilerSuite) TestDatabaseRelationBroken(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Active)
	s.ctx.CurrentRel = "database:1"

	c.Assert(s.handle(c, "database-relation-broken"), jc.ErrorIsNil)
	s.ctx.CheckNoCalls(c)
	c.Check(s.state(), gc.Equals, reconciler.Active)
}

func (s *reconcilerSuite) TestDatabaseRelationDeparted(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Active)
	s.ctx.CurrentRel = "database:1"
	s.ctx.Remote = "postgresql/1"

	c.Assert(s.handle(c, "database-relation-departed"), jc.ErrorIsNil)
	s.ctx.CheckNoCalls(c)
	c.Check(s.state(), gc.Equals, reconciler.Active)
	c.Check(c.GetTestLog(), jc.Contains, "postgresql/1 left database relation database:1")
}

func (s *reconcilerSuite) TestUpgradePackageWhenActive(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Active)
	s.strategyIs("package", false, true)
	gomock.InOrder(
		s.strategy.EXPECT().Upgrade(gomock.Any()).Return(nil),
		s.service.EXPECT().Restart(gomock.Any()).Return(nil),
	)

	c.Assert(s.handle(c, "upgrade-charm"), jc.ErrorIsNil)
	c.Check(s.state(), gc.Equals, reconciler.Active)
	c.Check(s.ctx.LastStatus().Status, gc.Equals, status.Active)
}

func (s *reconcilerSuite) TestUpgradePackageWhenAvailable(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Available)
	s.strategyIs("package", false, true)
	s.strategy.EXPECT().Upgrade(gomock.Any()).Return(nil)

	c.Assert(s.handle(c, "upgrade-charm"), jc.ErrorIsNil)
	c.Check(s.state(), gc.Equals, reconciler.Available)
	c.Check(s.ctx.LastStatus().Message, gc.Equals, "Waiting for database")
}

func (s *reconcilerSuite) TestUpgradeSourceStopsAndReconfigures(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Active)
	s.addDatabase("master")
	s.ctx.ConfigValues["tagged_release"] = "2.2.0"
	s.strategyIs("source", true, false)
	gomock.InOrder(
		s.service.EXPECT().Stop(gomock.Any()).Return(nil),
		s.strategy.EXPECT().Upgrade(gomock.Any()).Return(nil),
		s.settings.EXPECT().Write(gomock.Any()).Return(nil),
		s.service.EXPECT().WriteEnvironment(gomock.Any(), gomock.Any()).Return(false, nil),
		s.service.EXPECT().Restart(gomock.Any()).Return(nil),
	)

	c.Assert(s.handle(c, "upgrade-charm"), jc.ErrorIsNil)
	c.Check(s.state(), gc.Equals, reconciler.Active)
}

func (s *reconcilerSuite) TestUpgradeSourceWithoutDatabase(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.setState(reconciler.Active)
	s.strategyIs("source", true, false)
	s.service.EXPECT().Stop(gomock.Any()).Return(nil)
	s.strategy.EXPECT().Upgrade(gomock.Any()).Return(nil)

	c.Assert(s.handle(c, "upgrade-charm"), jc.ErrorIsNil)
	c.Check(s.state(), gc.Equals, reconciler.Available)
}

func (s *reconcilerSuite) TestUpgradeNotInstalled(c *gc.C) {
	defer s.setupMocks(c).Finish()

	c.Assert(s.handle(c, "upgrade-charm"), jc.ErrorIsNil)
	s.ctx.CheckCallNames(c, "StateGet")
}

func (s *reconcilerSuite) TestWebsiteRelation(c *gc.C) {
	defer s.setupMocks(c).Finish()
	rel := s.ctx.AddRelation("website:2", "website")
	s.ctx.CurrentRel = "website:2"
	s.ctx.ConfigValues["service_type"] = "admin"

	c.Assert(s.handle(c, "website-relation-joined"), jc.ErrorIsNil)
	c.Check(rel.Local, jc.DeepEquals, map[string]string{
		"hostname": "serial-vault",
		"port":     "8081",
	})
}

func (s *reconcilerSuite) TestWebsiteRelationUnknownMode(c *gc.C) {
	defer s.setupMocks(c).Finish()
	rel := s.ctx.AddRelation("website:2", "website")
	s.ctx.CurrentRel = "website:2"
	s.ctx.ConfigValues["service_type"] = "frontend"

	c.Assert(s.handle(c, "website-relation-changed"), jc.ErrorIsNil)
	c.Check(rel.Local["port"], gc.Equals, "8080")
}

func (s *reconcilerSuite) TestNRPERelation(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.ctx.ConfigValues["nagios_check_http_params"] = "-H localhost"
	s.ctx.ConfigValues["nagios_context"] = "prod"
	s.nrpe.EXPECT().Update(gomock.Any(), "prod", []nrpe.Check{nrpe.VhostCheck("-H localhost")}).Return(nil)

	c.Assert(s.handle(c, "nrpe-external-master-relation-changed"), jc.ErrorIsNil)
}

func (s *reconcilerSuite) TestNRPERelationWithoutParams(c *gc.C) {
	defer s.setupMocks(c).Finish()

	c.Assert(s.handle(c, "nrpe-external-master-relation-joined"), jc.ErrorIsNil)
}

func (s *reconcilerSuite) TestIgnoredHooks(c *gc.C) {
	defer s.setupMocks(c).Finish()
	for _, hook := range []string{"start", "stop", "update-status", "leader-elected", "website-relation-departed", "bogus"} {
		c.Check(s.handle(c, hook), jc.ErrorIsNil)
	}
	s.ctx.CheckNoCalls(c)
}
