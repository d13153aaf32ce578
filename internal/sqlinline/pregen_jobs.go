package sqlinline

const QInsertPregenJob = `--sql 55748234-d2fe-411a-8e4c-79a8587ebc19
insert into pregen_jobs (id, status, request, created_at, updated_at)
values ($1::uuid, 'QUEUED', $2::jsonb, now(), now())
returning created_at;
`

const QSelectPregenJob = `--sql 99ea78b7-7fe0-4305-9dc5-4edffe71d65b
select id::text, status, request, result, coalesce(error, ''), created_at, started_at, finished_at
from pregen_jobs
where id = $1::uuid;
`

const QClaimPregenJob = `--sql b3d375a9-4315-4456-9b53-e8632ff9f03d
with next_job as (
    select id
    from pregen_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update pregen_jobs
    set status = 'RUNNING', started_at = now(), updated_at = now()
    where id in (select id from next_job)
    returning id::text, request, created_at, started_at
)
select * from updated;
`

const QFinishPregenJob = `--sql d6ff06b3-0ccd-4655-abb0-c18b24a90651
update pregen_jobs
set status = $2::text,
    result = $3::jsonb,
    error = nullif($4::text, ''),
    finished_at = now(),
    updated_at = now()
where id = $1::uuid;
`

const QRequeueStalePregenJobs = `--sql 5e74c093-6ef1-4fa2-b782-d1cc2d54851e
update pregen_jobs
set status = 'QUEUED', started_at = null, updated_at = now()
where status = 'RUNNING'
  and started_at < now() - make_interval(secs => $1::int);
`
