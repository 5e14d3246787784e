// Package provision creates and initializes the isolated database of a new
// tenant.
//
// Service.Provision runs these steps strictly in order:
//
//  1. derive the database name and connection string (PrepareConnection);
//  2. create the database under a Postgres advisory lock, treating
//     "already exists" as success;
//  3. apply the tenant schema migrations;
//  4. seed the default roles, the admin user with a generated password and
//     the admin role link (Seed);
//  5. activate the tenant when Options.AutoActivate is set.
//
// There is no rollback. Each step checks before it writes, so a failed run is
// completed by calling Provision again.
package provision
